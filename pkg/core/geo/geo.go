package geo

// Coordinate is a WGS-84 (latitude, longitude) pair in decimal degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Polygon is a GeoJSON-style polygon. Coordinates holds linear rings of
// [longitude, latitude] positions; the outer ring repeats its first point as
// the last point. Zone geometry is assumed well-formed by the upstream
// zone-drawing tool and is not validated here.
type Polygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Zone is a campaign zone with its polygon geometry
type Zone struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	GeoJSON Polygon `json:"geojson"`
}

// PointInZone reports whether c lies inside the polygon's outer ring, using
// an even-odd ray cast. Behavior for points exactly on the boundary is
// implementation-defined; callers must not depend on edge semantics.
func PointInZone(c Coordinate, poly Polygon) bool {
	if len(poly.Coordinates) == 0 {
		return false
	}
	ring := poly.Coordinates[0]
	if len(ring) < 4 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		if len(ring[i]) < 2 || len(ring[j]) < 2 {
			return false
		}
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > c.Latitude) != (yj > c.Latitude) &&
			c.Longitude < (xj-xi)*(c.Latitude-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// FindContainingZone returns the first zone in input order containing c, or
// nil when the list is empty or no zone contains the point. First-match
// ordering for overlapping zones is part of the contract.
func FindContainingZone(c Coordinate, zones []Zone) *Zone {
	for i := range zones {
		if PointInZone(c, zones[i].GeoJSON) {
			return &zones[i]
		}
	}
	return nil
}
