package bdproc

import (
	"context"
	"testing"

	"github.com/fabricbd/bdctl/pkg/classify"
	"github.com/fabricbd/bdctl/pkg/model"
)

func newProcessor() *Processor {
	c := classify.NewDeviceClassifier(nil)
	r := classify.NewRoleAssigner(c, classify.LLDPMap{})
	return NewProcessor(r)
}

func ifaceSingle(device, name string, vlanID int) *model.Interface {
	iface := model.NewInterfaceFromName(device, name)
	iface.ParentName = name
	iface.Kind = model.KindPhysical
	iface.VLAN = model.VLANFacts{Kind: model.VLANSingle, VLANID: vlanID}
	return iface
}

func ifaceQinQ(device, name string, outer, inner int) *model.Interface {
	iface := model.NewInterfaceFromName(device, name)
	iface.ParentName = name
	iface.Kind = model.KindPhysical
	iface.VLAN = model.VLANFacts{Kind: model.VLANQinQ, HasOuter: true, OuterVLAN: outer, HasInner: true, InnerVLAN: inner}
	return iface
}

func ifacePush(device, name string, outer int) *model.Interface {
	iface := model.NewInterfaceFromName(device, name)
	iface.ParentName = name
	iface.Kind = model.KindPhysical
	iface.VLAN = model.VLANFacts{
		Kind:      model.VLANManipulation,
		HasOuter:  true,
		OuterVLAN: outer,
		Manipulation: &model.Manipulation{
			Action: model.ManipulationPush, OuterTag: outer, TPID: "0x8100",
		},
	}
	return iface
}

func ifacePortMode(device, name string) *model.Interface {
	iface := model.NewInterfaceFromName(device, name)
	iface.ParentName = name
	iface.Kind = model.KindPhysical
	return iface
}

func TestProcess_Validation_EmptyBD(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{Device: "L-A", BDName: "g_alice_v100"}
	if _, err := p.Process(raw); err == nil {
		t.Fatal("expected validation error for empty bd")
	}
}

func TestProcess_Validation_NoVLANFactNotPortMode(t *testing.T) {
	p := newProcessor()
	iface := ifacePortMode("L-A", "ge100-0/0/1.200")
	iface.HasSubinterface = true
	raw := &model.RawBridgeDomain{Device: "L-A", BDName: "g_alice_v100", Members: []*model.Interface{iface}}
	if _, err := p.Process(raw); err == nil {
		t.Fatal("expected validation error for subinterface with no vlan fact")
	}
}

func TestProcess_Classify_DoubleTagged(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device:  "L-A",
		BDName:  "g_alice_v100",
		Members: []*model.Interface{ifaceQinQ("L-A", "ge100-0/0/1", 100, 200)},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.DNAASType != model.DNAASDoubleTagged {
		t.Errorf("DNAASType = %q, want %q", out.DNAASType, model.DNAASDoubleTagged)
	}
	if out.GlobalIdentifier == nil || *out.GlobalIdentifier != 100 {
		t.Errorf("GlobalIdentifier = %v, want 100", out.GlobalIdentifier)
	}
	if out.Username == nil || *out.Username != "alice" {
		t.Errorf("Username = %v, want alice", out.Username)
	}
	if out.ConsolidationKey != "alice|100" {
		t.Errorf("ConsolidationKey = %q, want alice|100", out.ConsolidationKey)
	}
}

func TestProcess_Classify_QinQSingle(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device: "L-A",
		BDName: "g_bob_v210",
		Members: []*model.Interface{
			ifacePush("L-A", "ge100-0/0/2", 210),
			ifacePush("L-A", "ge100-0/0/3", 210),
		},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.DNAASType != model.DNAASQinQSingle {
		t.Errorf("DNAASType = %q, want %q", out.DNAASType, model.DNAASQinQSingle)
	}
	if !out.QinQDetected {
		t.Error("QinQDetected should be true")
	}
}

func TestProcess_Classify_QinQMulti(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device: "L-A",
		BDName: "shared-bd",
		Members: []*model.Interface{
			ifacePush("L-A", "ge100-0/0/2", 210),
			ifacePush("L-A", "ge100-0/0/3", 211),
		},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.DNAASType != model.DNAASQinQMulti {
		t.Errorf("DNAASType = %q, want %q", out.DNAASType, model.DNAASQinQMulti)
	}
}

func TestProcess_Classify_Hybrid(t *testing.T) {
	p := newProcessor()
	pop := ifacePush("L-A", "ge100-0/0/4", 300)
	pop.VLAN.Manipulation.Action = model.ManipulationPop
	raw := &model.RawBridgeDomain{
		Device:  "L-A",
		BDName:  "mixed-bd",
		Members: []*model.Interface{ifacePush("L-A", "ge100-0/0/2", 210), pop},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.DNAASType != model.DNAASHybrid {
		t.Errorf("DNAASType = %q, want %q", out.DNAASType, model.DNAASHybrid)
	}
}

func TestProcess_Classify_SingleTagged(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device:  "L-A",
		BDName:  "customer100_v100",
		Members: []*model.Interface{ifaceSingle("L-A", "ge100-0/0/1", 100)},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.DNAASType != model.DNAASSingleTagged {
		t.Errorf("DNAASType = %q, want %q", out.DNAASType, model.DNAASSingleTagged)
	}
	if out.GlobalIdentifier == nil || *out.GlobalIdentifier != 100 {
		t.Errorf("GlobalIdentifier = %v, want 100", out.GlobalIdentifier)
	}
}

func TestProcess_Classify_PortMode(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device:  "L-A",
		BDName:  "port-bd",
		Members: []*model.Interface{ifacePortMode("L-A", "ge100-0/0/9")},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.DNAASType != model.DNAASPortMode {
		t.Errorf("DNAASType = %q, want %q", out.DNAASType, model.DNAASPortMode)
	}
	if out.GlobalIdentifier != nil {
		t.Errorf("GlobalIdentifier = %v, want nil", out.GlobalIdentifier)
	}
	if out.ConsolidationKey != "INDIVIDUAL|port-bd" {
		t.Errorf("ConsolidationKey = %q, want INDIVIDUAL|port-bd", out.ConsolidationKey)
	}
}

func TestProcess_Username_BareFallback(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device:  "L-A",
		BDName:  "customer200-200",
		Members: []*model.Interface{ifaceSingle("L-A", "ge100-0/0/1", 200)},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.Username == nil || *out.Username != "customer200" {
		t.Errorf("Username = %v, want customer200", out.Username)
	}
}

func TestProcess_PortMode_IndividualKeyDespiteUsername(t *testing.T) {
	p := newProcessor()
	raw := &model.RawBridgeDomain{
		Device:  "L-A",
		BDName:  "strange_name_here",
		Members: []*model.Interface{ifacePortMode("L-A", "ge100-0/0/1")},
	}
	out, err := p.Process(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.ConsolidationKey != "INDIVIDUAL|strange_name_here" {
		t.Errorf("ConsolidationKey = %q, want INDIVIDUAL|strange_name_here", out.ConsolidationKey)
	}
}

func TestProcessAll_Concurrent(t *testing.T) {
	p := newProcessor()
	raws := []*model.RawBridgeDomain{
		{Device: "L-A", BDName: "g_alice_v100", Members: []*model.Interface{ifaceQinQ("L-A", "ge1", 100, 200)}},
		{Device: "L-B", BDName: "g_bob_v101", Members: []*model.Interface{ifaceQinQ("L-B", "ge2", 101, 201)}},
		{Device: "L-C", BDName: ""},
	}
	processed, diags, err := ProcessAll(context.Background(), p, raws, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 2 {
		t.Errorf("processed count = %d, want 2", len(processed))
	}
	if len(diags) == 0 {
		t.Error("expected a diagnostic for the invalid bd")
	}
}
