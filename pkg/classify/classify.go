// Package classify implements the Device & Role Classifier (C3): device
// class assignment from a name pattern table plus manual overrides, and
// interface role assignment from bundle-name patterns (for LAG bundles)
// or LLDP neighbor data (for physical ports).
package classify

import (
	"regexp"
	"strings"

	"github.com/fabricbd/bdctl/pkg/model"
)

var (
	leafPatternRe       = regexp.MustCompile(`(?i)^(l-|leaf)`)
	spinePatternRe      = regexp.MustCompile(`(?i)^(s-|spine)`)
	superspinePatternRe = regexp.MustCompile(`(?i)^(ss-|superspine)`)

	// Infrastructure bundle patterns from spec §3/§4.C7: uplink bundles on
	// leaves are "bundle-60000*"; downlink bundles on spines follow
	// "bundle-6000N" (N>=1). Overridable with WithBundlePatterns; the
	// config's InfrastructureBundlePatterns does not change them.
	defaultLeafUplinkBundleRe  = regexp.MustCompile(`^bundle-60000\d*$`)
	defaultSpineDownlinkRe     = regexp.MustCompile(`^bundle-6000[1-9]\d*$`)
)

// DeviceClassifier assigns a DeviceClass to a device name, consulting a
// manual override map before falling back to the pattern table (spec
// §4.C3: "pattern-table match... with a manual override map").
type DeviceClassifier struct {
	overrides map[string]model.DeviceClass
}

// NewDeviceClassifier builds a classifier from the config's manual
// device-class override map (device name -> "leaf"/"spine"/"superspine").
func NewDeviceClassifier(overrides map[string]string) *DeviceClassifier {
	c := &DeviceClassifier{overrides: make(map[string]model.DeviceClass, len(overrides))}
	for name, class := range overrides {
		c.overrides[name] = model.DeviceClass(class)
	}
	return c
}

// Classify returns the DeviceClass for name.
func (c *DeviceClassifier) Classify(name string) model.DeviceClass {
	if class, ok := c.overrides[name]; ok {
		return class
	}
	switch {
	case superspinePatternRe.MatchString(name):
		return model.DeviceSuperspine
	case spinePatternRe.MatchString(name):
		return model.DeviceSpine
	case leafPatternRe.MatchString(name):
		return model.DeviceLeaf
	default:
		return model.DeviceUnknown
	}
}

// LLDPNeighbor is one (device, iface) -> (neighbor_device, neighbor_iface)
// entry parsed from the LLDP neighbor map input (spec §4.C3).
type LLDPNeighbor struct {
	NeighborDevice string
	NeighborIface  string
}

// LLDPMap is keyed by "device|iface".
type LLDPMap map[string]LLDPNeighbor

func lldpKey(device, iface string) string { return device + "|" + iface }

// Lookup returns the neighbor for (device, iface), and whether the entry
// was present and not the corrupt "|" sentinel (spec §4.C3).
func (m LLDPMap) Lookup(device, iface string) (LLDPNeighbor, bool) {
	raw, ok := m[lldpKey(device, iface)]
	if !ok {
		return LLDPNeighbor{}, false
	}
	if raw.NeighborDevice == "" || raw.NeighborIface == "" {
		return LLDPNeighbor{}, false
	}
	return raw, true
}

// RoleAssigner assigns InterfaceRole to interfaces given device classes
// and LLDP neighbor data.
type RoleAssigner struct {
	classifier                *DeviceClassifier
	leafUplinkBundleRe         *regexp.Regexp
	spineDownlinkBundleRe      *regexp.Regexp
	lldp                       LLDPMap
}

// RoleAssignerOption configures a RoleAssigner's bundle-name patterns.
type RoleAssignerOption func(*RoleAssigner)

// WithBundlePatterns overrides the default infrastructure bundle regexes
// with operator-supplied patterns (spec §4.C7 config override).
func WithBundlePatterns(leafUplink, spineDownlink *regexp.Regexp) RoleAssignerOption {
	return func(r *RoleAssigner) {
		if leafUplink != nil {
			r.leafUplinkBundleRe = leafUplink
		}
		if spineDownlink != nil {
			r.spineDownlinkBundleRe = spineDownlink
		}
	}
}

// NewRoleAssigner builds a RoleAssigner over the given device classifier
// and LLDP neighbor map.
func NewRoleAssigner(classifier *DeviceClassifier, lldp LLDPMap, opts ...RoleAssignerOption) *RoleAssigner {
	r := &RoleAssigner{
		classifier:            classifier,
		leafUplinkBundleRe:    defaultLeafUplinkBundleRe,
		spineDownlinkBundleRe: defaultSpineDownlinkRe,
		lldp:                  lldp,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AssignRole assigns iface.Role in place and returns a diagnostic if the
// interface's role could not be determined.
func (r *RoleAssigner) AssignRole(iface *model.Interface) *model.Diagnostic {
	deviceClass := r.classifier.Classify(iface.Device)

	if iface.Kind == model.KindBundle {
		return r.assignBundleRole(iface, deviceClass)
	}
	return r.assignPhysicalRole(iface, deviceClass)
}

func (r *RoleAssigner) assignBundleRole(iface *model.Interface, deviceClass model.DeviceClass) *model.Diagnostic {
	name := strings.ToLower(iface.ParentName)
	switch {
	case deviceClass == model.DeviceLeaf && r.leafUplinkBundleRe.MatchString(name):
		iface.Role = model.RoleUplink
	case deviceClass == model.DeviceSpine && r.spineDownlinkBundleRe.MatchString(name):
		iface.Role = model.RoleDownlink
	default:
		iface.Role = model.RoleAccess
	}
	return nil
}

// assignPhysicalRole follows the LLDP-derived role matrix from spec
// §4.C3: leaf<->spine, spine<->spine, spine<->superspine, leaf<->leaf.
func (r *RoleAssigner) assignPhysicalRole(iface *model.Interface, deviceClass model.DeviceClass) *model.Diagnostic {
	neighbor, ok := r.lldp.Lookup(iface.Device, iface.ParentName)
	if !ok {
		iface.Role = model.RoleUnknown
		diag := model.NewDiagnostic(model.DiagLLDPMissing, iface.Device, "", "no LLDP neighbor data for "+iface.ParentName)
		return &diag
	}

	neighborClass := r.classifier.Classify(neighbor.NeighborDevice)

	switch {
	case deviceClass == model.DeviceLeaf && neighborClass == model.DeviceSpine:
		iface.Role = model.RoleUplink
	case deviceClass == model.DeviceSpine && neighborClass == model.DeviceLeaf:
		iface.Role = model.RoleDownlink
	case deviceClass == model.DeviceSpine && neighborClass == model.DeviceSpine:
		iface.Role = model.RoleTransport
	case deviceClass == model.DeviceSpine && neighborClass == model.DeviceSuperspine:
		iface.Role = model.RoleUplink
	case deviceClass == model.DeviceSuperspine && neighborClass == model.DeviceSpine:
		iface.Role = model.RoleDownlink
	case deviceClass == model.DeviceLeaf && neighborClass == model.DeviceLeaf:
		iface.Role = model.RoleUnknown
		diag := model.NewDiagnostic(model.DiagInvalidTopology, iface.Device, "", "leaf-to-leaf adjacency on "+iface.ParentName)
		return &diag
	default:
		iface.Role = model.RoleAccess
	}
	return nil
}
