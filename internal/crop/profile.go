// v1
// internal/crop/profile.go
package crop

// Crop identifies one of the built-in crop profiles.
type Crop string

const (
	Onion Crop = "onion"
	Maize Crop = "maize"
)

// Point is one control point of a piecewise-linear profile: the value the
// profile takes at a given day after planting.
type Point struct {
	Day   int
	Value float64
}

// Profile is an ordered sequence of control points, strictly increasing by day.
type Profile struct {
	Points []Point
}

var kcProfiles = map[Crop]Profile{
	Onion: {Points: []Point{{0, 0.7}, {15, 0.7}, {21, 0.8}, {24, 0.9}, {29, 0.94}, {33, 1.0}, {82, 1.1}, {106, 0.8}}},
	Maize: {Points: []Point{{0, 0.3}, {20, 0.3}, {40, 0.7}, {60, 1.0}, {80, 0.8}, {100, 0.6}}},
}

// Root-zone depth in meters by day.
var rootProfiles = map[Crop]Profile{
	Onion: {Points: []Point{{0, 0.05}, {18, 0.25}, {38, 0.43}, {73, 0.60}, {106, 0.60}}},
	Maize: {Points: []Point{{0, 0.30}, {20, 0.50}, {40, 0.80}, {60, 1.20}, {80, 1.50}}},
}

// Known reports whether a crop has built-in profiles.
func Known(c Crop) bool {
	_, ok := kcProfiles[c]
	return ok
}

// KcProfile returns the crop-coefficient profile for c.
func KcProfile(c Crop) (Profile, bool) {
	p, ok := kcProfiles[c]
	return p, ok
}

// RootProfile returns the root-zone depth profile (meters) for c.
func RootProfile(c Crop) (Profile, bool) {
	p, ok := rootProfiles[c]
	return p, ok
}

// Interpolate returns the profile value at the given day after planting.
// Days before the first control point clamp to its value, days past the last
// clamp to the last value, and anything in between is linear between the
// bracketing pair. Always returns a value; an empty profile yields 0.
func (p Profile) Interpolate(day int) float64 {
	pts := p.Points
	if len(pts) == 0 {
		return 0
	}
	if day <= pts[0].Day {
		return pts[0].Value
	}
	if day >= pts[len(pts)-1].Day {
		return pts[len(pts)-1].Value
	}
	for i := 0; i < len(pts)-1; i++ {
		p0, p1 := pts[i], pts[i+1]
		if p0.Day <= day && day <= p1.Day {
			if p1.Day == p0.Day {
				return p0.Value
			}
			return p0.Value + (p1.Value-p0.Value)*float64(day-p0.Day)/float64(p1.Day-p0.Day)
		}
	}
	return pts[len(pts)-1].Value
}
