package model

// ChangeKind enumerates the full set of edit operations an EditSession can
// record (spec §3 EditSession, §4.C7).
type ChangeKind string

const (
	ChangeAddInterface      ChangeKind = "add_interface"
	ChangeRemoveInterface   ChangeKind = "remove_interface"
	ChangeModifyInterface   ChangeKind = "modify_interface"
	ChangeMoveInterface     ChangeKind = "move_interface"
	ChangeVLANID            ChangeKind = "change_vlan_id"
	ChangeOuterVLAN         ChangeKind = "change_outer_vlan"
	ChangeInnerVLAN         ChangeKind = "change_inner_vlan"
	ChangeManipulationField ChangeKind = "change_manipulation"
)

// ModifyField names the field a modify_interface change targets.
type ModifyField string

const (
	FieldVLANID       ModifyField = "vlan_id"
	FieldOuterVLAN    ModifyField = "outer_vlan"
	FieldInnerVLAN    ModifyField = "inner_vlan"
	FieldManipulation ModifyField = "manipulation"
)

// Change is one entry in an EditSession's ordered change log. Before/After
// capture enough state to compute an inverse for undo/rollback; Reversible
// is true iff that inverse is actually expressible from the stored state
// (spec §4.C7: "declares itself reversible iff its inverse is expressible
// with stored before-state").
type Change struct {
	Kind ChangeKind

	Device string
	Iface  string

	// For move_interface: destination (device, iface).
	ToDevice string
	ToIface  string

	Field ModifyField // for modify_interface / change_* BD-wide edits

	Before *VLANFacts
	After  *VLANFacts

	Reversible bool
}

// Inverse returns the Change that undoes c, or (Change{}, false) if c is
// not reversible.
func (c Change) Inverse() (Change, bool) {
	if !c.Reversible {
		return Change{}, false
	}
	inv := c
	switch c.Kind {
	case ChangeAddInterface:
		inv.Kind = ChangeRemoveInterface
	case ChangeRemoveInterface:
		inv.Kind = ChangeAddInterface
	case ChangeMoveInterface:
		inv.Device, inv.Iface = c.ToDevice, c.ToIface
		inv.ToDevice, inv.ToIface = c.Device, c.Iface
	}
	inv.Before, inv.After = c.After, c.Before
	return inv, true
}
