package model

// Facilities describes amenities available at a stop.
type Facilities struct {
	HasShelter           bool `json:"hasShelter"`
	HasBench             bool `json:"hasBench"`
	HasLighting          bool `json:"hasLighting"`
	HasElectronicDisplay bool `json:"hasElectronicDisplay"`
	IsAccessible         bool `json:"isAccessible"`
}

// Stop is a fixed boarding point served by one or more routes.
type Stop struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	RouteIDs   []string   `json:"routeIds,omitempty"`
	Facilities Facilities `json:"facilities"`
	Address    string     `json:"address,omitempty"`
	ImageKey   string     `json:"imageKey,omitempty"`
}

// NearbyStop is a proximity query result, nearest first.
type NearbyStop struct {
	Stop
	DistanceMeters float64 `json:"distanceMeters"`
}
