// Package models contains domain types for the UAV log viewer.
package models

// Region identifies one of the mutually exclusive display areas.
type Region string

const (
	RegionNone   Region = ""
	RegionLogs   Region = "logs"
	RegionChart  Region = "chart"
	RegionEvents Region = "events"
)

// Regions lists the displayable regions in page order.
var Regions = []Region{RegionLogs, RegionChart, RegionEvents}

// Valid reports whether r names a displayable region.
func (r Region) Valid() bool {
	switch r {
	case RegionLogs, RegionChart, RegionEvents:
		return true
	}
	return false
}
