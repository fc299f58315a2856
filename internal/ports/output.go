package ports

import "gapsync/internal/types"

// OutputPort writes resolution artifacts for the builder to pick up at
// export time.
type OutputPort interface {
	WriteUpdateReport(report types.HostUpdateReport) error
	WriteFleetSummary(summary types.FleetSummary) error
}
