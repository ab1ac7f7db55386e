package model

// RawBridgeDomain is a per-device fragment as discovered from one device's
// CLI dump, before BD-PROC classification (spec §3). It is owned by the
// parsing pass and discarded once BD-PROC has consumed it.
type RawBridgeDomain struct {
	Device  string
	BDName  string
	Members []*Interface // interfaces on Device that belong to this BD
	RawCLI  []string     // ordered lines from the BD stanza, ANSI-stripped
}

// ConsolidationInfo records why a consolidated record's primary name was
// chosen, and which per-device bd-names it represents (spec §4.C5).
type ConsolidationInfo struct {
	Represents       []string // all source bd-names, in selection order
	SelectionReason  string   // e.g. "standard_format_preferred", "shortest_name", "lexicographic"
}

// ProcessedBridgeDomain is the output of running BD-PROC's seven phases on
// one RawBridgeDomain (spec §4.C4).
type ProcessedBridgeDomain struct {
	Device  string
	BDName  string
	Members []*Interface

	DNAASType        DNAASType
	QinQDetected     bool
	GlobalIdentifier *int // nil means "None": cannot consolidate (Phase 3)
	Username         *string

	ConsolidationKey string

	Diagnostics []Diagnostic
}

// ConsolidatedBridgeDomain is the network-wide broadcast domain assembled
// by the Consolidation Engine (C5) from one or more ProcessedBridgeDomain
// fragments that share a consolidation key (spec §3).
type ConsolidatedBridgeDomain struct {
	ConsolidationKey string
	PrimaryName      string

	DNAASType        DNAASType
	GlobalIdentifier *int
	Username         *string

	Members []*ProcessedBridgeDomain

	// Devices groups interfaces by device — never flat, per spec §3.
	Devices map[string][]*Interface

	Consolidation ConsolidationInfo

	// AssignmentState tracks operator-facing lifecycle, out of BD-PROC's
	// scope but owned by the BD Store (spec §6): available, assigned,
	// editing, deployed.
	AssignmentState string
}

// DeviceNames returns the set of devices this BD spans, in map iteration
// order (not sorted).
func (c *ConsolidatedBridgeDomain) DeviceNames() []string {
	names := make([]string, 0, len(c.Devices))
	for d := range c.Devices {
		names = append(names, d)
	}
	return names
}

// InterfaceCount returns the total number of member interfaces across all devices.
func (c *ConsolidatedBridgeDomain) InterfaceCount() int {
	n := 0
	for _, ifaces := range c.Devices {
		n += len(ifaces)
	}
	return n
}

// Clone returns a deep copy suitable for an EditSession's working copy —
// mutating the clone must never affect the original (spec §3 EditSession,
// §8 invariant 3: "No self-edit of originals").
func (c *ConsolidatedBridgeDomain) Clone() *ConsolidatedBridgeDomain {
	clone := *c
	if c.GlobalIdentifier != nil {
		v := *c.GlobalIdentifier
		clone.GlobalIdentifier = &v
	}
	if c.Username != nil {
		v := *c.Username
		clone.Username = &v
	}
	clone.Devices = make(map[string][]*Interface, len(c.Devices))
	for dev, ifaces := range c.Devices {
		cp := make([]*Interface, len(ifaces))
		for i, iface := range ifaces {
			ifaceCopy := *iface
			ifaceCopy.VLAN = cloneVLANFacts(iface.VLAN)
			ifaceCopy.RawCLI = append([]string(nil), iface.RawCLI...)
			cp[i] = &ifaceCopy
		}
		clone.Devices[dev] = cp
	}
	clone.Consolidation.Represents = append([]string(nil), c.Consolidation.Represents...)
	clone.Members = nil // members are discovery provenance, not mutated via edit sessions
	return &clone
}

func cloneVLANFacts(v VLANFacts) VLANFacts {
	clone := v
	clone.VLANList = append([]int(nil), v.VLANList...)
	if v.Manipulation != nil {
		m := *v.Manipulation
		clone.Manipulation = &m
	}
	return clone
}

// FindInterface returns the member interface at (device, name), if any.
func (c *ConsolidatedBridgeDomain) FindInterface(device, name string) (*Interface, bool) {
	for _, iface := range c.Devices[device] {
		if iface.Name == name {
			return iface, true
		}
	}
	return nil, false
}
