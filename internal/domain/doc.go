// Package domain turns free-form coordinate text into KML marker documents.
//
// # Input Conventions
//
// Messages are plain text. Each line (or whitespace-delimited field, see
// [SegmentMode]) is tested against three detectors in priority order:
//
//	Map link:       https://www.google.com/maps?q=32.0853,34.7818
//	                Also accepted: ll= and query= parameters, %2C separators.
//	Geodetic pair:  32.0853,34.7818   32.0853 34.7818   32.0853,34.7818;Gate
//	                Both values need a decimal point and at most three integer
//	                digits. A ";label" or "-label" suffix names the point.
//	Grid pair:      709997/3505054   709997,3505054   709997 3505054-North
//	                UTM easting (six integer digits) then northing (six or seven
//	                integer digits) in the configured zone and hemisphere.
//
// The digit counts keep the geodetic and grid patterns disjoint: degrees never
// need more than three integer digits and UTM eastings always have six.
//
// Labels:
//
//	A segment that matches no detector is remembered as the pending label for
//	the next recognized coordinate, e.g.
//
//	  North gate
//	  32.0853,34.7818
//
//	names the point "North gate". The label is consumed by exactly one
//	coordinate; later unlabeled coordinates fall back to "Loc N", where N counts
//	located points from 1.
//
// # Grid Projection
//
// Grid pairs are converted with the closed-form inverse transverse Mercator
// series on the WGS84 ellipsoid (scale 0.9996, false easting 500 km, southern
// false northing 10000 km). The zone's central meridian is zone*6-183 degrees.
// Eastings outside 100–900 km or northings outside 0–10000 km are rejected
// with [ErrProjection].
//
// # Markers
//
// Each point becomes a small closed polygon. Metric size is converted to
// degrees with a flat-earth approximation (111320 m per degree of latitude,
// scaled by cos(latitude) for longitude), which is fine for pins up to about
// 100 m across.
//
// # Output
//
// The KML document holds one shared <Style> and one <Placemark> per marker,
// each with a <Polygon> ring written as "lon,lat,0" triples. Colors use the
// KML aabbggrr byte order; the fill alpha is derived from a percent opacity
// (65% → a5).
package domain
