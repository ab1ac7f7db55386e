// Package diffengine implements the Type-Aware Diff Engine (C8): it
// classifies each (device, iface) endpoint across (original, working_copy)
// as ADD/REMOVE/MODIFY, validates the result against the DNAAS type's
// rules, and emits a device-ordered DeploymentPlan with a symmetric
// rollback plan — grounded on the teacher's ChangeSet.Apply/Rollback
// inverse-change construction, generalized to a per-type template table.
package diffengine

import (
	"fmt"
	"sort"

	"github.com/fabricbd/bdctl/pkg/ferrors"
	"github.com/fabricbd/bdctl/pkg/model"
)

// endpointKind classifies one (device, iface) across original/working copy.
type endpointKind int

const (
	endpointAdd endpointKind = iota
	endpointRemove
	endpointModify
)

type endpoint struct {
	device string
	name   string
	kind   endpointKind
	before *model.Interface
	after  *model.Interface
}

// Generate produces a DeploymentPlan from (original, workingCopy), or an
// error if the BD's type has no edit template or a hard pre-generation
// check fails (spec §4.C8).
func Generate(original, workingCopy *model.ConsolidatedBridgeDomain) (*model.DeploymentPlan, error) {
	dnaasType := workingCopy.DNAASType
	if !dnaasType.Editable() {
		return nil, ferrors.NewDiagnosticError(model.DiagValidationFailed, "", workingCopy.PrimaryName,
			fmt.Sprintf("dnaas type %s has no edit template", dnaasType.Name()), ferrors.ErrNotEditable)
	}

	endpoints := diffEndpoints(original, workingCopy)

	if err := validateEndpoints(dnaasType, endpoints); err != nil {
		return nil, err
	}

	commandsByDevice := make(map[string][]string)
	rollbackByDevice := make(map[string][]string)
	devicesSeen := make(map[string]bool)

	for _, ep := range endpoints {
		fwd, back, err := commandsFor(dnaasType, workingCopy.PrimaryName, ep)
		if err != nil {
			return nil, err
		}
		for _, line := range append(append([]string{}, fwd...), back...) {
			if !validGrammar(line) {
				return nil, ferrors.NewDiagnosticError(model.DiagValidationFailed, ep.device, workingCopy.PrimaryName,
					fmt.Sprintf("generated command %q failed grammar validation", line), ferrors.ErrValidationFailed)
			}
		}
		commandsByDevice[ep.device] = append(commandsByDevice[ep.device], fwd...)
		rollbackByDevice[ep.device] = append(rollbackByDevice[ep.device], back...)
		devicesSeen[ep.device] = true
	}

	order := make([]string, 0, len(devicesSeen))
	for d := range devicesSeen {
		order = append(order, d)
	}
	sort.Strings(order)

	affected := append([]string(nil), order...)

	return &model.DeploymentPlan{
		BDName:           workingCopy.PrimaryName,
		CommandsByDevice: commandsByDevice,
		RollbackByDevice: rollbackByDevice,
		DeviceOrder:      order,
		AffectedDevices:  affected,
	}, nil
}

// diffEndpoints classifies every (device, iface) present in either
// original or workingCopy by (device, iface) identity and field equality.
func diffEndpoints(original, workingCopy *model.ConsolidatedBridgeDomain) []endpoint {
	beforeByKey := make(map[string]*model.Interface)
	if original != nil {
		for device, ifaces := range original.Devices {
			for _, iface := range ifaces {
				beforeByKey[device+"|"+iface.Name] = iface
			}
		}
	}

	afterByKey := make(map[string]*model.Interface)
	var keys []string
	for device, ifaces := range workingCopy.Devices {
		for _, iface := range ifaces {
			key := device + "|" + iface.Name
			afterByKey[key] = iface
			keys = append(keys, key)
		}
	}
	for key := range beforeByKey {
		if _, ok := afterByKey[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var endpoints []endpoint
	for _, key := range keys {
		before, hasBefore := beforeByKey[key]
		after, hasAfter := afterByKey[key]
		switch {
		case !hasBefore && hasAfter:
			endpoints = append(endpoints, endpoint{device: after.Device, name: after.Name, kind: endpointAdd, after: after})
		case hasBefore && !hasAfter:
			endpoints = append(endpoints, endpoint{device: before.Device, name: before.Name, kind: endpointRemove, before: before})
		case hasBefore && hasAfter && !vlanEqual(before.VLAN, after.VLAN):
			endpoints = append(endpoints, endpoint{device: after.Device, name: after.Name, kind: endpointModify, before: before, after: after})
		}
	}
	return endpoints
}

func vlanEqual(a, b model.VLANFacts) bool {
	if a.Kind != b.Kind || a.VLANID != b.VLANID || a.OuterVLAN != b.OuterVLAN || a.InnerVLAN != b.InnerVLAN {
		return false
	}
	if a.Manipulation == nil && b.Manipulation == nil {
		return true
	}
	if a.Manipulation == nil || b.Manipulation == nil {
		return false
	}
	return *a.Manipulation == *b.Manipulation
}

// validateEndpoints applies spec §4.C8's per-type hard rejects to every
// endpoint touched by this plan.
func validateEndpoints(dnaasType model.DNAASType, endpoints []endpoint) error {
	vb := &ferrors.ValidationBuilder{}
	for _, ep := range endpoints {
		vlan := endpointVLAN(ep)
		switch dnaasType {
		case model.DNAASSingleTagged:
			vb.Requiref(vlan.Kind == model.VLANSingle, "4A endpoint %s/%s must have vlan_id and no manipulation/tags", ep.device, ep.name)
		case model.DNAASQinQSingle:
			vb.Requiref(vlan.Kind == model.VLANManipulation && vlan.Manipulation != nil && vlan.Manipulation.Action == model.ManipulationPush,
				"2A endpoint %s/%s must have a push manipulation with outer-tag", ep.device, ep.name)
			vb.Requiref(vlan.HasOuter, "2A endpoint %s/%s must have outer_vlan", ep.device, ep.name)
		case model.DNAASDoubleTagged:
			vb.Requiref(vlan.Kind == model.VLANQinQ && vlan.HasOuter && vlan.HasInner,
				"type 1 endpoint %s/%s must have both outer_vlan and inner_vlan and no manipulation", ep.device, ep.name)
		case model.DNAASPortMode:
			vb.Requiref(ep.kind != endpointModify, "port-mode endpoint %s/%s has no VLAN facts to modify", ep.device, ep.name)
			vb.Requiref(vlan.IsEmpty(), "port-mode endpoint %s/%s must have no VLAN facts", ep.device, ep.name)
		}
	}
	return vb.Build()
}

func endpointVLAN(ep endpoint) model.VLANFacts {
	if ep.after != nil {
		return ep.after.VLAN
	}
	if ep.before != nil {
		return ep.before.VLAN
	}
	return model.VLANFacts{}
}

// commandsFor returns the forward command sequence and its symmetric
// inverse for one endpoint, per the §4.C8 template table.
func commandsFor(dnaasType model.DNAASType, bdName string, ep endpoint) (forward, rollback []string, err error) {
	switch ep.kind {
	case endpointAdd:
		return templateAdd(dnaasType, bdName, ep.device, ep.name, ep.after.VLAN), templateRemove(dnaasType, bdName, ep.device, ep.name, ep.after.VLAN), nil
	case endpointRemove:
		return templateRemove(dnaasType, bdName, ep.device, ep.name, ep.before.VLAN), templateAdd(dnaasType, bdName, ep.device, ep.name, ep.before.VLAN), nil
	case endpointModify:
		fwd := append(templateRemove(dnaasType, bdName, ep.device, ep.name, ep.before.VLAN), templateAdd(dnaasType, bdName, ep.device, ep.name, ep.after.VLAN)...)
		back := append(templateRemove(dnaasType, bdName, ep.device, ep.name, ep.after.VLAN), templateAdd(dnaasType, bdName, ep.device, ep.name, ep.before.VLAN)...)
		return fwd, back, nil
	default:
		return nil, nil, fmt.Errorf("unknown endpoint kind")
	}
}

func templateAdd(dnaasType model.DNAASType, bdName, device, iface string, vlan model.VLANFacts) []string {
	switch dnaasType {
	case model.DNAASSingleTagged:
		sub := fmt.Sprintf("%s.%d", iface, vlan.VLANID)
		return []string{
			fmt.Sprintf("interfaces %s", sub),
			fmt.Sprintf("interfaces %s vlan-id %d", sub, vlan.VLANID),
			fmt.Sprintf("interfaces %s l2-service enable", sub),
		}
	case model.DNAASQinQSingle:
		sub := fmt.Sprintf("%s.%d", iface, vlan.OuterVLAN)
		return []string{
			fmt.Sprintf("interfaces %s", sub),
			fmt.Sprintf("interfaces %s vlan-manipulation ingress-mapping action push outer-tag %d outer-tpid 0x8100", sub, vlan.OuterVLAN),
			fmt.Sprintf("interfaces %s l2-service enable", sub),
		}
	case model.DNAASDoubleTagged:
		sub := fmt.Sprintf("%s.%d", iface, vlan.InnerVLAN)
		return []string{
			fmt.Sprintf("interfaces %s", sub),
			fmt.Sprintf("interfaces %s vlan-tags outer-tag %d inner-tag %d", sub, vlan.OuterVLAN, vlan.InnerVLAN),
			fmt.Sprintf("interfaces %s l2-service enable", sub),
		}
	case model.DNAASPortMode:
		return []string{
			fmt.Sprintf("network-services bridge-domain instance %s interface %s", bdName, iface),
			fmt.Sprintf("interfaces %s l2-service enable", iface),
		}
	default:
		return nil
	}
}

func templateRemove(dnaasType model.DNAASType, bdName, device, iface string, vlan model.VLANFacts) []string {
	switch dnaasType {
	case model.DNAASSingleTagged:
		return []string{fmt.Sprintf("no interfaces %s.%d", iface, vlan.VLANID)}
	case model.DNAASQinQSingle:
		return []string{fmt.Sprintf("no interfaces %s.%d", iface, vlan.OuterVLAN)}
	case model.DNAASDoubleTagged:
		return []string{fmt.Sprintf("no interfaces %s.%d", iface, vlan.InnerVLAN)}
	case model.DNAASPortMode:
		return []string{fmt.Sprintf("no network-services bridge-domain instance %s interface %s", bdName, iface)}
	default:
		return nil
	}
}
