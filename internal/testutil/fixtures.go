// Package testutil provides fixture builders shared by unit and
// integration tests: sample interfaces, consolidated bridge domains, and
// LLDP neighbor maps, grounded on the teacher's internal/testutil/fixtures.go
// "build me a realistic object graph" helpers, generalized from devices to
// bridge domains.
package testutil

import (
	"strconv"
	"strings"

	"github.com/fabricbd/bdctl/pkg/classify"
	"github.com/fabricbd/bdctl/pkg/model"
)

// SingleTaggedInterface returns a customer-access interface carrying a
// single VLAN ID (DNAAS type 4A), with RawCLI populated so it satisfies the
// Golden Rule.
func SingleTaggedInterface(device, name string, vlanID int) *model.Interface {
	parent, subID, has := model.SplitInterfaceName(name)
	return &model.Interface{
		Device:          device,
		Name:            name,
		ParentName:      parent,
		HasSubinterface: has,
		SubinterfaceID:  subID,
		Kind:            model.KindPhysical,
		Role:            model.RoleAccess,
		VLAN:            model.VLANFacts{Kind: model.VLANSingle, VLANID: vlanID},
		RawCLI:          []string{"vlan-id " + strconv.Itoa(vlanID)},
	}
}

// QinQInterface returns a customer-access interface with explicit
// outer+inner VLAN tags (DNAAS type 1).
func QinQInterface(device, name string, outer, inner int) *model.Interface {
	parent, subID, has := model.SplitInterfaceName(name)
	return &model.Interface{
		Device:          device,
		Name:            name,
		ParentName:      parent,
		HasSubinterface: has,
		SubinterfaceID:  subID,
		Kind:            model.KindPhysical,
		Role:            model.RoleAccess,
		VLAN: model.VLANFacts{
			Kind: model.VLANQinQ, OuterVLAN: outer, InnerVLAN: inner, HasOuter: true, HasInner: true,
		},
		RawCLI: []string{"vlan-tags outer-tag " + strconv.Itoa(outer) + " inner-tag " + strconv.Itoa(inner)},
	}
}

// ConsolidatedBD assembles a ConsolidatedBridgeDomain spanning the given
// per-device interface sets, with the given DNAAS type and global identifier.
func ConsolidatedBD(primaryName string, typ model.DNAASType, globalID int, devices map[string][]*model.Interface) *model.ConsolidatedBridgeDomain {
	return &model.ConsolidatedBridgeDomain{
		ConsolidationKey: "GID|" + strconv.Itoa(globalID),
		PrimaryName:      primaryName,
		DNAASType:        typ,
		GlobalIdentifier: &globalID,
		Devices:          devices,
		AssignmentState:  "assigned",
	}
}

// LLDPMapOf builds an LLDP neighbor map for exercising the Device & Role
// Classifier without a real discovery run. key is "device|iface" and value
// is the neighbor as "neighbor_device|neighbor_iface".
func LLDPMapOf(links map[string]string) classify.LLDPMap {
	m := make(classify.LLDPMap, len(links))
	for key, neighbor := range links {
		neighborDevice, neighborIface, _ := strings.Cut(neighbor, "|")
		m[key] = classify.LLDPNeighbor{NeighborDevice: neighborDevice, NeighborIface: neighborIface}
	}
	return m
}

