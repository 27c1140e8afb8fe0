package topic

import (
	"fmt"
)

// Topic segments of the buswatch bridge protocol. These are the contract
// between the hub and external MQTT consumers/producers; changing them
// breaks deployed dashboards and driver devices.
const (
	// SuffixLocation carries accepted position updates, hub -> consumers.
	// The payload mirrors the WebSocket locationBroadcast message and is
	// published retained so late joiners see the last known position.
	// Structure: {root}/location/{vehicleID}
	SuffixLocation = "location"

	// SuffixReport carries raw position reports, driver device -> hub.
	// Structure: {root}/report/{vehicleID}
	SuffixReport = "report"
)

// Builder constructs bridge topic strings under a fixed root namespace
// (e.g. "transit/v1").
type Builder struct {
	root string
}

// NewBuilder creates a Builder with the given root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Location returns the egress topic for a vehicle's accepted updates.
func (b *Builder) Location(vehicleID string) string {
	return b.build(SuffixLocation, vehicleID)
}

// Report returns the ingress topic a driver device publishes to.
func (b *Builder) Report(vehicleID string) string {
	return b.build(SuffixReport, vehicleID)
}

// ReportWildcard returns the wildcard filter the hub subscribes with to
// receive reports for every vehicle.
// Result: {root}/report/+
func (b *Builder) ReportWildcard() string {
	return b.build(SuffixReport, "+")
}

func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
