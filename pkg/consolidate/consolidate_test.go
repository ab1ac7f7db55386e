package consolidate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fabricbd/bdctl/pkg/model"
)

func pbd(device, bdName, key string, dnaasType model.DNAASType, globalID *int, ifaceNames ...string) *model.ProcessedBridgeDomain {
	var members []*model.Interface
	for _, name := range ifaceNames {
		members = append(members, &model.Interface{Device: device, Name: name})
	}
	return &model.ProcessedBridgeDomain{
		Device:           device,
		BDName:           bdName,
		Members:          members,
		DNAASType:        dnaasType,
		GlobalIdentifier: globalID,
		ConsolidationKey: key,
	}
}

func intPtr(n int) *int { return &n }

func TestConsolidate_MergesAcrossDevices(t *testing.T) {
	members := []*model.ProcessedBridgeDomain{
		pbd("L-A", "g_alice_v100", "alice|100", model.DNAASDoubleTagged, intPtr(100), "ge1"),
		pbd("L-B", "alice-bd-100", "alice|100", model.DNAASDoubleTagged, intPtr(100), "ge2"),
	}
	results, diags := Consolidate(members)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 consolidated bd, got %d", len(results))
	}
	cbd := results[0]
	if cbd.PrimaryName != "g_alice_v100" {
		t.Errorf("PrimaryName = %q, want g_alice_v100", cbd.PrimaryName)
	}
	if cbd.Consolidation.SelectionReason != "standard_format_preferred" {
		t.Errorf("SelectionReason = %q", cbd.Consolidation.SelectionReason)
	}
	if len(cbd.Devices) != 2 {
		t.Errorf("Devices spans = %d, want 2", len(cbd.Devices))
	}
}

func TestConsolidate_DedupesInterfaces(t *testing.T) {
	members := []*model.ProcessedBridgeDomain{
		pbd("L-A", "g_bob_v200", "bob|200", model.DNAASSingleTagged, intPtr(200), "ge1", "ge2"),
		pbd("L-A", "bob-dup", "bob|200", model.DNAASSingleTagged, intPtr(200), "ge1"),
	}
	results, _ := Consolidate(members)
	if got := len(results[0].Devices["L-A"]); got != 2 {
		t.Errorf("deduped interface count = %d, want 2", got)
	}
}

func TestConsolidate_SplitsOnDisagreement(t *testing.T) {
	members := []*model.ProcessedBridgeDomain{
		pbd("L-A", "g_carol_v300", "carol|300", model.DNAASDoubleTagged, intPtr(300), "ge1"),
		pbd("L-B", "g_carol_v300", "carol|300", model.DNAASDoubleTagged, intPtr(300), "ge2"),
		pbd("L-C", "g_carol_v300", "carol|300", model.DNAASSingleTagged, intPtr(300), "ge3"),
	}
	results, diags := Consolidate(members)
	if len(diags) != 1 || diags[0].Code != model.DiagConsolidationSplit {
		t.Fatalf("expected ConsolidationSplit diagnostic, got %v", diags)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (consolidated + individual), got %d", len(results))
	}
}

func TestChoosePrimaryName_ShortestTieBreak(t *testing.T) {
	group := []*model.ProcessedBridgeDomain{
		{BDName: "zz-bd"},
		{BDName: "aa-bd"},
		{BDName: "longer-name-bd"},
	}
	name, reason := choosePrimaryName(group)
	if name != "aa-bd" {
		t.Errorf("name = %q, want aa-bd", name)
	}
	if reason != "lexicographic" {
		t.Errorf("reason = %q, want lexicographic", reason)
	}
}

// TestConsolidate_DeterministicAcrossInputOrder exercises the spec §5
// determinism guarantee: feeding Consolidate the same fragments in a
// different encounter order must not change the result. go-cmp is used
// here rather than reflect.DeepEqual because a mismatch in these
// multi-device, multi-interface structs is unreadable as a single bool.
func TestConsolidate_DeterministicAcrossInputOrder(t *testing.T) {
	forward := []*model.ProcessedBridgeDomain{
		pbd("L-A", "g_alice_v100", "alice|100", model.DNAASDoubleTagged, intPtr(100), "ge1"),
		pbd("L-B", "alice-bd-100", "alice|100", model.DNAASDoubleTagged, intPtr(100), "ge2"),
		pbd("L-C", "g_carol_v300", "carol|300", model.DNAASDoubleTagged, intPtr(300), "ge3"),
		pbd("L-A", "g_carol_v300", "carol|300", model.DNAASDoubleTagged, intPtr(300), "ge4"),
	}
	reversed := make([]*model.ProcessedBridgeDomain, len(forward))
	for i, m := range forward {
		reversed[len(forward)-1-i] = m
	}

	resultsFwd, diagsFwd := Consolidate(forward)
	resultsRev, diagsRev := Consolidate(reversed)

	if diff := cmp.Diff(resultsFwd, resultsRev); diff != "" {
		t.Errorf("Consolidate() not deterministic across input order (-forward +reversed):\n%s", diff)
	}
	if diff := cmp.Diff(diagsFwd, diagsRev); diff != "" {
		t.Errorf("diagnostics not deterministic across input order (-forward +reversed):\n%s", diff)
	}
}

// TestConsolidate_Idempotent re-consolidating an already-consolidated
// group's own Members must reproduce the same ConsolidatedBridgeDomain.
func TestConsolidate_Idempotent(t *testing.T) {
	members := []*model.ProcessedBridgeDomain{
		pbd("L-A", "g_alice_v100", "alice|100", model.DNAASDoubleTagged, intPtr(100), "ge1"),
		pbd("L-B", "alice-bd-100", "alice|100", model.DNAASDoubleTagged, intPtr(100), "ge2"),
	}

	once, _ := Consolidate(members)
	twice, _ := Consolidate(once[0].Members)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Consolidate() not idempotent (-once +twice):\n%s", diff)
	}
}
