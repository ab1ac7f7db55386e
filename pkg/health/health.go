// Package health implements the Health & Impact Analyzer (C10): blocking
// pre-edit checks over a ConsolidatedBridgeDomain and per-change impact
// summaries consumed by the Deployment Coordinator (C9), grounded on the
// teacher's RunHealthChecks/HealthCheckResult pattern generalized from a
// live device session to a bridge domain's working copy.
package health

import (
	"fmt"

	"github.com/fabricbd/bdctl/pkg/model"
)

// CheckResult mirrors the teacher's HealthCheckResult shape: a named check
// with a pass/warn/fail status and a human-readable message.
type CheckResult struct {
	Check   string `json:"check"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// Blocked reports whether results contains any fail-status check.
func Blocked(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// RunPreEditChecks runs the blocking checks from spec §4.C10 against a
// ConsolidatedBridgeDomain before an edit session is allowed to begin.
func RunPreEditChecks(bd *model.ConsolidatedBridgeDomain) []CheckResult {
	var results []CheckResult
	results = append(results, checkRequiredFields(bd)...)
	results = append(results, checkDeviceMapNonEmpty(bd)...)
	results = append(results, checkVLANEnvelope(bd)...)
	results = append(results, checkInfrastructureOnly(bd)...)
	return results
}

func checkRequiredFields(bd *model.ConsolidatedBridgeDomain) []CheckResult {
	if bd.PrimaryName == "" {
		return []CheckResult{{Check: "required_fields", Status: StatusFail, Message: "primary_name is missing"}}
	}
	if bd.DNAASType == model.DNAASUnknown {
		return []CheckResult{{Check: "required_fields", Status: StatusFail, Message: "dnaas_type is unset"}}
	}
	return []CheckResult{{Check: "required_fields", Status: StatusPass, Message: "primary_name and dnaas_type present"}}
}

func checkDeviceMapNonEmpty(bd *model.ConsolidatedBridgeDomain) []CheckResult {
	if len(bd.Devices) == 0 {
		return []CheckResult{{Check: "device_map", Status: StatusFail, Message: "bridge domain has no devices"}}
	}
	return []CheckResult{{Check: "device_map", Status: StatusPass, Message: fmt.Sprintf("%d device(s)", len(bd.Devices))}}
}

// checkVLANEnvelope verifies every member interface's VLAN fact kind is
// consistent with the shape the BD's dnaas_type requires.
func checkVLANEnvelope(bd *model.ConsolidatedBridgeDomain) []CheckResult {
	for device, ifaces := range bd.Devices {
		for _, iface := range ifaces {
			if iface.Role != model.RoleAccess {
				continue
			}
			if !vlanMatchesType(bd.DNAASType, iface.VLAN) {
				return []CheckResult{{Check: "vlan_envelope", Status: StatusFail,
					Message: fmt.Sprintf("%s/%s VLAN facts are inconsistent with dnaas_type %s", device, iface.Name, bd.DNAASType.Name())}}
			}
		}
	}
	return []CheckResult{{Check: "vlan_envelope", Status: StatusPass, Message: "VLAN facts consistent with dnaas_type"}}
}

func vlanMatchesType(t model.DNAASType, vlan model.VLANFacts) bool {
	switch t {
	case model.DNAASSingleTagged:
		return vlan.Kind == model.VLANSingle
	case model.DNAASVLANRangeList:
		return vlan.Kind == model.VLANList || vlan.Kind == model.VLANRange
	case model.DNAASDoubleTagged:
		return vlan.Kind == model.VLANQinQ
	case model.DNAASQinQSingle, model.DNAASQinQMulti, model.DNAASHybrid:
		return vlan.Kind == model.VLANManipulation
	case model.DNAASPortMode:
		return vlan.Kind == model.VLANNone || vlan.Kind == model.VLANPortMode
	default:
		return true
	}
}

// checkInfrastructureOnly warns (does not fail) when a BD has member
// interfaces but none are access-role, a likely sign a customer BD was
// misclassified as infrastructure-only (spec §4.C10).
func checkInfrastructureOnly(bd *model.ConsolidatedBridgeDomain) []CheckResult {
	total := 0
	access := 0
	for _, ifaces := range bd.Devices {
		for _, iface := range ifaces {
			total++
			if iface.Role == model.RoleAccess {
				access++
			}
		}
	}
	if total > 0 && access == 0 {
		return []CheckResult{{Check: "access_interfaces", Status: StatusWarn, Message: "bridge domain has no access interfaces"}}
	}
	return []CheckResult{{Check: "access_interfaces", Status: StatusPass, Message: fmt.Sprintf("%d access interface(s)", access)}}
}

// Impact computes a model.ImpactSummary for the transition from original to
// workingCopy (spec §4.C10: "counts of customer endpoints affected, set of
// devices touched, classification of downtime, warnings for edge cases").
func Impact(original, workingCopy *model.ConsolidatedBridgeDomain) model.ImpactSummary {
	beforeAccess := accessEndpoints(original)
	afterAccess := accessEndpoints(workingCopy)

	devicesTouched := make(map[string]bool)
	affected := 0
	var downtime model.DowntimeClass
	var warnings []string

	for key, before := range beforeAccess {
		after, stillPresent := afterAccess[key]
		switch {
		case !stillPresent:
			affected++
			devicesTouched[before.Device] = true
			downtime = worstOf(downtime, model.DowntimeImmediate)
		case !vlanEqual(before.VLAN, after.VLAN):
			affected++
			devicesTouched[before.Device] = true
			downtime = worstOf(downtime, model.DowntimeBrief)
		}
	}
	for key, after := range afterAccess {
		if _, existedBefore := beforeAccess[key]; !existedBefore {
			affected++
			devicesTouched[after.Device] = true
			downtime = worstOf(downtime, model.DowntimeNone)
		}
	}

	if len(beforeAccess) > 0 && len(afterAccess) == 0 {
		warnings = append(warnings, "this change removes the last customer endpoint on the bridge domain")
	}

	for key, after := range afterAccess {
		if conflict, ok := conflictsElsewhereOnDevice(workingCopy, key, after); ok {
			warnings = append(warnings, conflict)
		}
	}

	devices := make([]string, 0, len(devicesTouched))
	for d := range devicesTouched {
		devices = append(devices, d)
	}

	return model.ImpactSummary{
		CustomerEndpointsAffected: affected,
		DevicesTouched:            devices,
		Downtime:                  downtime,
		Warnings:                  warnings,
	}
}

func accessEndpoints(bd *model.ConsolidatedBridgeDomain) map[string]*model.Interface {
	out := make(map[string]*model.Interface)
	if bd == nil {
		return out
	}
	for device, ifaces := range bd.Devices {
		for _, iface := range ifaces {
			if iface.Role == model.RoleAccess {
				out[device+"|"+iface.Name] = iface
			}
		}
	}
	return out
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

func worstOf(a, b model.DowntimeClass) model.DowntimeClass {
	rank := map[model.DowntimeClass]int{"": 0, model.DowntimeNone: 1, model.DowntimeBrief: 2, model.DowntimeImmediate: 3}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// conflictsElsewhereOnDevice warns when the new VLAN id on key's device
// collides with another access interface's VLAN elsewhere on the same
// device (spec §4.C10 edge case).
func conflictsElsewhereOnDevice(bd *model.ConsolidatedBridgeDomain, key string, changed *model.Interface) (string, bool) {
	if changed.VLAN.Kind != model.VLANSingle {
		return "", false
	}
	for _, iface := range bd.Devices[changed.Device] {
		candidateKey := changed.Device + "|" + iface.Name
		if candidateKey == key || iface.Role != model.RoleAccess {
			continue
		}
		if iface.VLAN.Kind == model.VLANSingle && iface.VLAN.VLANID == changed.VLAN.VLANID {
			return fmt.Sprintf("vlan %d on %s conflicts with existing interface %s on the same device", changed.VLAN.VLANID, changed.Device, iface.Name), true
		}
	}
	return "", false
}
