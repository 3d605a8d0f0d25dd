package geo

// Bounds is a geographic bounding box
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Region is a center point plus span, the shape map views work in
type Region struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitude_delta"`
	LongitudeDelta float64 `json:"longitude_delta"`
}

// DenmarkBounds is a coarse bounding box around Denmark used for sanity
// checks on reported GPS fixes.
var DenmarkBounds = Bounds{North: 57.8, South: 54.5, East: 15.3, West: 8.0}

// IsWithinDenmark reports whether c falls inside the Denmark bounding box
func IsWithinDenmark(c Coordinate) bool {
	return c.Latitude >= DenmarkBounds.South &&
		c.Latitude <= DenmarkBounds.North &&
		c.Longitude >= DenmarkBounds.West &&
		c.Longitude <= DenmarkBounds.East
}

// BoundsToRegion converts a bounding box to a center+span region
func BoundsToRegion(b Bounds) Region {
	return Region{
		Latitude:       (b.North + b.South) / 2,
		Longitude:      (b.East + b.West) / 2,
		LatitudeDelta:  b.North - b.South,
		LongitudeDelta: b.East - b.West,
	}
}

// RegionToBounds converts a center+span region to a bounding box
func RegionToBounds(r Region) Bounds {
	return Bounds{
		North: r.Latitude + r.LatitudeDelta/2,
		South: r.Latitude - r.LatitudeDelta/2,
		East:  r.Longitude + r.LongitudeDelta/2,
		West:  r.Longitude - r.LongitudeDelta/2,
	}
}
