package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attaches place names to markers. A nil geocoder, a
// failed lookup or an empty answer leaves the marker unchanged (graceful
// degradation). The input slice is not modified.
func EnrichWithGeocoding(ctx context.Context, markers []Marker, geocoder Geocoder, logger *slog.Logger) []Marker {
	if geocoder == nil || len(markers) == 0 {
		return markers
	}

	out := make([]Marker, len(markers))
	copy(out, markers)

	for i := range out {
		if ctx.Err() != nil {
			break
		}

		m := &out[i]
		result, err := geocoder.ReverseGeocode(ctx, m.Point.Lat, m.Point.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"label", m.Label,
				"lat", m.Point.Lat,
				"lon", m.Point.Lon,
				"error", err,
			)
			continue
		}
		if result.FormattedAddress == "" {
			continue
		}

		m.Description = result.FormattedAddress
		m.Place = result.PlaceName
		if m.Place == "" {
			m.Place = result.FormattedAddress
		}
	}

	return out
}
