package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fabricbd/bdctl/pkg/model"
)

func writeDump(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// =============================================================================
// Load: dump discovery and pairing
// =============================================================================

func TestLoad_PairsMatchingTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "L-A.bd.20260101120000.txt", "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n")
	writeDump(t, dir, "L-A.vlan.20260101120000.txt", "interfaces ge100-0/0/5.251 vlan-id 251\n")

	result, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", result.Diagnostics)
	}
	pair, ok := result.Pairs["L-A"]
	if !ok {
		t.Fatal("expected a pair for device L-A")
	}
	if pair.bdDump == "" || pair.vlanDump == "" {
		t.Error("expected both dumps to be populated")
	}
}

func TestLoad_FallsBackToNewestVLANDump(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "L-A.bd.20260101120000.txt", "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n")
	// No VLAN dump at the same timestamp — only an older and a newer one.
	writeDump(t, dir, "L-A.vlan.20260101110000.txt", "interfaces ge100-0/0/5.251 vlan-id 1\n")
	writeDump(t, dir, "L-A.vlan.20260101130000.txt", "interfaces ge100-0/0/5.251 vlan-id 251\n")

	result, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pair, ok := result.Pairs["L-A"]
	if !ok {
		t.Fatal("expected a pair for device L-A")
	}
	if pair.vlanDump != "interfaces ge100-0/0/5.251 vlan-id 251\n" {
		t.Errorf("vlanDump = %q, want the newest (251) dump", pair.vlanDump)
	}
}

func TestLoad_MissingFamilyYieldsDataMissing(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "L-A.bd.20260101120000.txt", "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n")

	result, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := result.Pairs["L-A"]; ok {
		t.Error("L-A should not be paired without a vlan dump")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != model.DiagDataMissing {
		t.Fatalf("diagnostics = %+v, want one DataMissing", result.Diagnostics)
	}
}

func TestLoad_StripsANSICodes(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "L-A.bd.20260101120000.txt", "\x1b[32mnetwork-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\x1b[0m\n")
	writeDump(t, dir, "L-A.vlan.20260101120000.txt", "interfaces ge100-0/0/5.251 vlan-id 251\n")

	result, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pair := result.Pairs["L-A"]
	if pair.bdDump != "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n" {
		t.Errorf("bdDump still contains escape codes: %q", pair.bdDump)
	}
}

func TestLoad_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "README.txt", "not a dump")
	writeDump(t, dir, "L-A.bd.20260101120000.txt", "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n")
	writeDump(t, dir, "L-A.vlan.20260101120000.txt", "interfaces ge100-0/0/5.251 vlan-id 251\n")

	result, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Pairs) != 1 {
		t.Errorf("Pairs = %+v, want exactly one entry", result.Pairs)
	}
}

// =============================================================================
// parseVLANDump
// =============================================================================

func TestParseVLANDump_SingleTagged(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5.251 vlan-id 251\n")
	iface, ok := ifaces["ge100-0/0/5.251"]
	if !ok {
		t.Fatal("expected interface ge100-0/0/5.251")
	}
	if iface.VLAN.Kind != model.VLANSingle || iface.VLAN.VLANID != 251 {
		t.Errorf("VLAN = %+v, want single-tagged 251", iface.VLAN)
	}
	if iface.ParentName != "ge100-0/0/5" || !iface.HasSubinterface || iface.SubinterfaceID != 251 {
		t.Errorf("parent/subinterface split wrong: %+v", iface)
	}
}

func TestParseVLANDump_QinQTags(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5.100 vlan-tags outer-tag 100 inner-tag 251\n")
	iface := ifaces["ge100-0/0/5.100"]
	if iface.VLAN.Kind != model.VLANQinQ {
		t.Fatalf("VLAN.Kind = %v, want VLANQinQ", iface.VLAN.Kind)
	}
	if !iface.VLAN.HasOuter || iface.VLAN.OuterVLAN != 100 {
		t.Errorf("outer tag = %+v, want 100", iface.VLAN)
	}
	if !iface.VLAN.HasInner || iface.VLAN.InnerVLAN != 251 {
		t.Errorf("inner tag = %+v, want 251", iface.VLAN)
	}
}

func TestParseVLANDump_ManipulationDefaultTPID(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5 vlan-manipulation ingress-mapping action push outer-tag 100\n")
	iface := ifaces["ge100-0/0/5"]
	if iface.VLAN.Kind != model.VLANManipulation {
		t.Fatalf("VLAN.Kind = %v, want VLANManipulation", iface.VLAN.Kind)
	}
	if iface.VLAN.Manipulation == nil || iface.VLAN.Manipulation.Action != model.ManipulationPush {
		t.Fatalf("Manipulation = %+v, want push", iface.VLAN.Manipulation)
	}
	if iface.VLAN.Manipulation.TPID != "0x8100" {
		t.Errorf("TPID = %q, want default 0x8100", iface.VLAN.Manipulation.TPID)
	}
}

func TestParseVLANDump_ManipulationExplicitTPID(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5 vlan-manipulation ingress-mapping action pop outer-tag 200 outer-tpid 0x9100\n")
	iface := ifaces["ge100-0/0/5"]
	if iface.VLAN.Manipulation.Action != model.ManipulationPop {
		t.Errorf("Action = %v, want pop", iface.VLAN.Manipulation.Action)
	}
	if iface.VLAN.Manipulation.TPID != "0x9100" {
		t.Errorf("TPID = %q, want 0x9100", iface.VLAN.Manipulation.TPID)
	}
}

func TestParseVLANDump_VLANRange(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5 vlan-id list 100-200\n")
	iface := ifaces["ge100-0/0/5"]
	if iface.VLAN.Kind != model.VLANRange || iface.VLAN.RangeLow != 100 || iface.VLAN.RangeHigh != 200 {
		t.Errorf("VLAN = %+v, want range [100,200]", iface.VLAN)
	}
}

func TestParseVLANDump_VLANList(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5 vlan-id list 10,20,30\n")
	iface := ifaces["ge100-0/0/5"]
	if iface.VLAN.Kind != model.VLANList {
		t.Fatalf("VLAN.Kind = %v, want VLANList", iface.VLAN.Kind)
	}
	want := []int{10, 20, 30}
	if len(iface.VLAN.VLANList) != len(want) {
		t.Fatalf("VLANList = %v, want %v", iface.VLAN.VLANList, want)
	}
	for i, v := range want {
		if iface.VLAN.VLANList[i] != v {
			t.Errorf("VLANList[%d] = %d, want %d", i, iface.VLAN.VLANList[i], v)
		}
	}
}

func TestParseVLANDump_BundleKind(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces bundle-60001.251 vlan-id 251\n")
	iface := ifaces["bundle-60001.251"]
	if iface.Kind != model.KindBundle {
		t.Errorf("Kind = %v, want KindBundle for a bundle parent", iface.Kind)
	}
}

func TestParseVLANDump_RawCLIRecordsSourceLine(t *testing.T) {
	line := "interfaces ge100-0/0/5.251 vlan-id 251"
	ifaces, _ := parseVLANDump("L-A", line+"\n")
	iface := ifaces["ge100-0/0/5.251"]
	if len(iface.RawCLI) != 1 || iface.RawCLI[0] != line {
		t.Errorf("RawCLI = %v, want [%q]", iface.RawCLI, line)
	}
}

// =============================================================================
// parseBDDump: the Golden Rule
// =============================================================================

func TestParseBDDump_AttachesParsedInterface(t *testing.T) {
	ifaces, _ := parseVLANDump("L-A", "interfaces ge100-0/0/5.251 vlan-id 251\n")
	bds, diags := parseBDDump("L-A", "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n", ifaces)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if len(bds) != 1 || bds[0].BDName != "g_alice_v251" {
		t.Fatalf("bds = %+v, want one g_alice_v251", bds)
	}
	if len(bds[0].Members) != 1 || bds[0].Members[0].Incomplete {
		t.Errorf("member should be the fully-parsed, non-incomplete interface")
	}
}

func TestParseBDDump_MissingVLANFactMarksIncomplete(t *testing.T) {
	// No VLAN dump entry for this interface at all.
	bds, _ := parseBDDump("L-A", "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/9\n", map[string]*model.Interface{})

	if len(bds) != 1 || len(bds[0].Members) != 1 {
		t.Fatalf("bds = %+v", bds)
	}
	member := bds[0].Members[0]
	if !member.Incomplete {
		t.Error("an interface with no VLAN dump entry must be marked Incomplete, never inferred")
	}
	if !member.VLAN.IsEmpty() {
		t.Errorf("VLAN = %+v, want empty (Golden Rule: never fabricate from the name)", member.VLAN)
	}
}

func TestParseBDDump_MultipleMembersPreserveOrder(t *testing.T) {
	dump := "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n" +
		"network-services bridge-domain instance g_alice_v251 interface ge100-0/0/6.251\n"
	bds, _ := parseBDDump("L-A", dump, map[string]*model.Interface{})

	if len(bds) != 1 || len(bds[0].Members) != 2 {
		t.Fatalf("bds = %+v", bds)
	}
	if bds[0].Members[0].Name != "ge100-0/0/5.251" || bds[0].Members[1].Name != "ge100-0/0/6.251" {
		t.Errorf("member order not preserved: %+v", bds[0].Members)
	}
}

// =============================================================================
// ParseAll
// =============================================================================

func TestParseAll_RunsAcrossDevices(t *testing.T) {
	pairs := map[string]devicePair{
		"L-A": {device: "L-A",
			bdDump:   "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/5.251\n",
			vlanDump: "interfaces ge100-0/0/5.251 vlan-id 251\n",
		},
		"L-B": {device: "L-B",
			bdDump:   "network-services bridge-domain instance g_alice_v251 interface ge100-0/0/6.251\n",
			vlanDump: "interfaces ge100-0/0/6.251 vlan-id 251\n",
		},
	}

	bds, diags, err := ParseAll(context.Background(), pairs, 2)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if len(bds) != 2 {
		t.Fatalf("bds = %+v, want one per device", bds)
	}
}

// =============================================================================
// atoiSafe / applyVLANListOrRange
// =============================================================================

func TestAtoiSafe(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"251", 251},
		{"0", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := atoiSafe(tt.in); got != tt.want {
			t.Errorf("atoiSafe(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
