package model

import "strings"

// InterfaceKind distinguishes physical ports from LAG bundles.
type InterfaceKind string

const (
	KindPhysical InterfaceKind = "physical"
	KindBundle   InterfaceKind = "bundle"
)

// InterfaceRole is the fabric role assigned by the Device & Role Classifier
// (spec §4.C3): access interfaces face customers, uplink/downlink/transport
// interfaces are infrastructure.
type InterfaceRole string

const (
	RoleUnknown   InterfaceRole = "unknown"
	RoleAccess    InterfaceRole = "access"
	RoleUplink    InterfaceRole = "uplink"
	RoleDownlink  InterfaceRole = "downlink"
	RoleTransport InterfaceRole = "transport"
)

// Interface is a (device, name) identified port or subinterface. Name is
// the unabbreviated port/bundle identifier, optionally with a ".N"
// subinterface suffix (spec §3).
type Interface struct {
	Device string
	Name   string

	ParentName      string // Name with any ".N" suffix stripped
	HasSubinterface bool
	SubinterfaceID  int

	Kind InterfaceKind
	Role InterfaceRole

	VLAN VLANFacts

	// RawCLI is the exact ordered lines that produced VLAN, ANSI-stripped.
	// Every VLAN fact above must be traceable to one of these lines or to
	// the device's VLAN-config dump — the Golden Rule (spec §3).
	RawCLI []string

	// Incomplete is set when the interface is a BD member but the VLAN
	// dump has no fact for it (spec §4.C2): retained, but blocks global
	// identifier extraction for BDs that depend on it.
	Incomplete bool
}

// NewInterfaceFromName builds an Interface for device/name with no VLAN
// facts yet; callers fill VLAN as they parse lines that reference it.
func NewInterfaceFromName(device, name string) *Interface {
	return &Interface{Device: device, Name: name}
}

// SplitInterfaceName splits "ge100-0/0/5.251" into ("ge100-0/0/5", 251,
// true), or returns (name, 0, false) when there is no subinterface suffix.
func SplitInterfaceName(name string) (parent string, subID int, has bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, 0, false
	}
	suffix := name[idx+1:]
	if suffix == "" {
		return name, 0, false
	}
	n := 0
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return name, 0, false
		}
		n = n*10 + int(c-'0')
	}
	return name[:idx], n, true
}

// IsBundle reports whether name looks like a LAG bundle identifier
// (e.g. "bundle-60001") as opposed to a physical port.
func IsBundle(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "bundle-")
}

// IsCustomerEditable reports whether this interface may be touched by an
// operator edit session (spec §4.C7): role must be access, it must not
// belong to the infrastructure bundle patterns, and it must not be
// incomplete (missing VLAN data).
func (i *Interface) IsCustomerEditable(isInfrastructureBundle func(name string) bool) bool {
	if i.Role != RoleAccess || i.Incomplete {
		return false
	}
	if i.Kind == KindBundle && isInfrastructureBundle(i.ParentName) {
		return false
	}
	return true
}
