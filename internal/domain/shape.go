package domain

import "math"

// metersPerDegree is the flat-earth length of one degree of latitude.
const metersPerDegree = 111320.0

// minCosLat keeps the longitude scale finite at the poles.
const minCosLat = 1e-6

var (
	squareAngles  = []float64{45, 135, 225, 315}
	hexagonAngles = []float64{0, 60, 120, 180, 240, 300}
	diamondAngles = []float64{90, 0, 270, 180} // N, E, S, W
)

// BuildRing returns the closed polygon of spec around p. Angles are measured
// counter-clockwise from east; every vertex sits spec.SizeMeters from p.
func BuildRing(p GeoPoint, spec ShapeSpec) Ring {
	dLat := spec.SizeMeters / metersPerDegree
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	if math.Abs(cosLat) < minCosLat {
		cosLat = minCosLat
	}
	dLon := spec.SizeMeters / (metersPerDegree * cosLat)

	angles := shapeAngles(spec)
	ring := make(Ring, 0, len(angles)+1)
	for _, deg := range angles {
		rad := deg * math.Pi / 180
		ring = append(ring, Vertex{
			Lon: p.Lon + dLon*math.Cos(rad),
			Lat: p.Lat + dLat*math.Sin(rad),
		})
	}
	return append(ring, ring[0])
}

func shapeAngles(spec ShapeSpec) []float64 {
	switch spec.Kind {
	case ShapeCircle:
		n := spec.Segments
		if n < 3 {
			n = DefaultCircleSegments
		}
		angles := make([]float64, n)
		for i := range angles {
			angles[i] = float64(i) * 360 / float64(n)
		}
		return angles
	case ShapeSquare:
		return squareAngles
	case ShapeHexagon:
		return hexagonAngles
	default:
		return diamondAngles
	}
}

// Closed reports whether the ring has at least four vertices and ends where
// it starts.
func (r Ring) Closed() bool {
	return len(r) >= 4 && r[0] == r[len(r)-1]
}
