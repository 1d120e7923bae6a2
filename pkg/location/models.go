package location

// Location represents the geographical coordinates of a device
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64  // meters
	Altitude  *float64 // meters above mean sea level
	Speed     *float64 // km/h
	Course    *float64 // degrees from true north
}
