// Package model holds the core, collaborator-free data types shared across
// the discovery, classification, consolidation, and edit/deploy pipelines:
// devices, interfaces, bridge domains at each stage, changes, sessions, and
// deployment plans. Nothing in this package talks to Redis, SSH, or the
// filesystem — it is the arena of stable identifiers and sealed sums the
// rest of the tree closes over, per the "enum + metadata" and "arenas keyed
// by stable identifiers" design notes.
package model

// DNAASType is the official DNAAS service classification for a bridge
// domain. It is a sealed sum: each variant carries its own editing and
// global-identifier rules via the methods below rather than scattering
// switch statements across the codebase.
type DNAASType string

const (
	DNAASUnknown       DNAASType = ""
	DNAASDoubleTagged  DNAASType = "1"  // explicit outer+inner tags, no manipulation
	DNAASQinQSingle    DNAASType = "2A" // manipulation push, full range [1,4094]
	DNAASQinQMulti     DNAASType = "2B" // manipulation, discrete/partial range
	DNAASHybrid        DNAASType = "3"  // mixed manipulation patterns in one BD
	DNAASSingleTagged  DNAASType = "4A" // single vlan_id, no manipulation
	DNAASVLANRangeList DNAASType = "4B" // vlan_range or vlan_list, no manipulation
	DNAASPortMode      DNAASType = "5"  // physical, no subinterface, no VLAN facts
)

// Name returns the human-readable DNAAS service name.
func (t DNAASType) Name() string {
	switch t {
	case DNAASDoubleTagged:
		return "Double-Tagged"
	case DNAASQinQSingle:
		return "QinQ Single BD"
	case DNAASQinQMulti:
		return "QinQ Multi BD"
	case DNAASHybrid:
		return "Hybrid"
	case DNAASSingleTagged:
		return "Single-Tagged"
	case DNAASVLANRangeList:
		return "VLAN Range/List"
	case DNAASPortMode:
		return "Port-Mode"
	default:
		return "Unknown"
	}
}

// AllowsConsolidation reports whether this type's global identifier can be
// used to consolidate fragments across devices (spec §4.C4 Phase 3: a BD
// with global_identifier=None cannot consolidate).
func (t DNAASType) AllowsConsolidation() bool {
	return t != DNAASPortMode && t != DNAASUnknown
}

// Editable reports whether the type-aware diff engine (C8) has a command
// template for this type. The C8 template table in spec §4.C8 only covers
// 4A, 2A, 1, and 5 — 2B, 3, and 4B classify and consolidate normally but
// have no editing template, so the diff engine refuses to generate plans
// for them. Type 3 additionally has an unresolved classification heuristic
// (spec §9 Open Questions) and is deliberately kept non-editable until a
// real corpus pins it down further.
func (t DNAASType) Editable() bool {
	switch t {
	case DNAASSingleTagged, DNAASQinQSingle, DNAASDoubleTagged, DNAASPortMode:
		return true
	default:
		return false
	}
}

// QinQDetected reports whether this type involves VLAN manipulation
// (push/pop), used to populate ProcessedBridgeDomain.QinQDetected.
func (t DNAASType) QinQDetected() bool {
	switch t {
	case DNAASQinQSingle, DNAASQinQMulti, DNAASHybrid:
		return true
	default:
		return false
	}
}
