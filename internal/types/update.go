package types

// UpdateRecord states that a newer build of an installed package is
// available in one channel. Records are regenerated on every resolution
// run and never mutated. The channel is part of the record identity: the
// same package appearing in two channels yields two records, and the
// operator chooses which channel to apply.
type UpdateRecord struct {
	HostID    string `json:"-"`
	Name      string `json:"name"`
	Arch      string `json:"arch"`
	Channel   string `json:"channel"`
	Installed EVR    `json:"installed"`
	Available EVR    `json:"available"`
}

// HostUpdateReport is the resolution output for a single host.
// Per-host problems (missing manifest, empty package list) are collected
// in Errors rather than aborting the run, so fleet-wide resolution
// always produces a report for every host.
type HostUpdateReport struct {
	HostID      string         `json:"host_id"`
	Profile     string         `json:"profile"`
	OSID        string         `json:"os_id"`
	OSVersion   string         `json:"os_version"`
	ComputedAt  string         `json:"computed_at"`
	UpdateCount int            `json:"update_count"`
	Updates     []UpdateRecord `json:"updates"`
	Errors      []string       `json:"errors"`
}

// HostSummary is one row of the fleet summary.
type HostSummary struct {
	HostID      string `json:"host_id"`
	Profile     string `json:"profile"`
	UpdateCount int    `json:"update_count"`
}

// FleetSummary aggregates resolution reports across all hosts.
type FleetSummary struct {
	GeneratedAt      string        `json:"generated_at"`
	TotalHosts       int           `json:"total_hosts"`
	HostsWithUpdates int           `json:"hosts_with_updates"`
	TotalUpdates     int           `json:"total_updates"`
	Hosts            []HostSummary `json:"hosts"`
}
