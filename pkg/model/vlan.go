package model

import "fmt"

// VLANKind distinguishes which VLAN-fact shape an interface carries. Only
// one combination is valid per DNAAS type (spec §3); modeling this as a
// tagged variant instead of a bag of optional fields makes "which facts
// are actually set" a closed, exhaustively-matchable question.
type VLANKind int

const (
	VLANNone VLANKind = iota
	VLANSingle
	VLANList
	VLANRange
	VLANQinQ         // explicit outer+inner tags, no manipulation
	VLANManipulation // push/pop manipulation, optionally with explicit outer
	VLANPortMode     // physical port, l2-service enabled, no VLAN facts at all
)

// ManipulationAction is one push/pop step in a vlan-manipulation algebra.
type ManipulationAction string

const (
	ManipulationPush ManipulationAction = "push"
	ManipulationPop  ManipulationAction = "pop"
)

// Manipulation describes one ingress/egress vlan-manipulation clause, e.g.
// "vlan-manipulation ingress-mapping action push outer-tag 210 outer-tpid 0x8100".
type Manipulation struct {
	Action   ManipulationAction
	OuterTag int
	InnerTag int // 0 if not present
	HasInner bool
	TPID     string // e.g. "0x8100"
}

// String renders the manipulation clause for diagnostics and diffing.
func (m Manipulation) String() string {
	if m.HasInner {
		return fmt.Sprintf("%s outer-tag %d inner-tag %d tpid %s", m.Action, m.OuterTag, m.InnerTag, m.TPID)
	}
	return fmt.Sprintf("%s outer-tag %d tpid %s", m.Action, m.OuterTag, m.TPID)
}

// VLANFacts is the sealed-sum VLAN configuration an interface may carry.
// At most one Kind is "active" for a given interface; the Golden Rule
// (spec §3, §8 invariant 1) requires that every populated field trace back
// to a RawCLI line or the device's VLAN-config dump — never to a name.
type VLANFacts struct {
	Kind VLANKind

	VLANID   int   // VLANSingle
	VLANList []int // VLANList (discrete set, in the order the dump lists it)

	RangeLow  int // VLANRange
	RangeHigh int // VLANRange

	OuterVLAN int // VLANQinQ, VLANManipulation (when an explicit outer-tag is present)
	InnerVLAN int // VLANQinQ only
	HasOuter  bool
	HasInner  bool

	Manipulation *Manipulation // VLANManipulation
}

// IsFullRange reports whether a VLANRange fact spans the entire usable
// VLAN space [1,4094]. The Phase 2 classifier does not call it: 2A and
// 2B are told apart by the number of distinct push outer tags.
func (v VLANFacts) IsFullRange() bool {
	return v.Kind == VLANRange && v.RangeLow == 1 && v.RangeHigh == 4094
}

// IsEmpty reports whether no VLAN fact at all was derived for the
// interface — distinct from VLANPortMode, which is an explicit
// classification rather than an absence of data.
func (v VLANFacts) IsEmpty() bool {
	return v.Kind == VLANNone
}
