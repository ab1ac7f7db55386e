package ferrors

import (
	"errors"
	"strings"
	"testing"

	"github.com/fabricbd/bdctl/pkg/model"
)

func TestDiagnosticError(t *testing.T) {
	err := NewDiagnosticError(model.DiagGoldenRuleViolation, "L-A", "g_alice_v251", "outer tag inferred from name", ErrGoldenRuleViolation)

	msg := err.Error()
	if !strings.Contains(msg, "L-A") {
		t.Errorf("Error() should contain device: %s", msg)
	}
	if !strings.Contains(msg, "g_alice_v251") {
		t.Errorf("Error() should contain bd name: %s", msg)
	}
	if !strings.Contains(msg, "outer tag inferred from name") {
		t.Errorf("Error() should contain detail: %s", msg)
	}
	if !errors.Is(err, ErrGoldenRuleViolation) {
		t.Error("DiagnosticError should unwrap to its wrapped sentinel")
	}
}

func TestDiagnosticErrorNoDeviceOrBD(t *testing.T) {
	err := NewDiagnosticError(model.DiagDataMissing, "", "", "no dump found", ErrNotFound)
	msg := err.Error()
	if strings.Contains(msg, "device=") || strings.Contains(msg, "bd=") {
		t.Errorf("Error() should omit empty device/bd fields: %s", msg)
	}
}

func TestValidationBuilder(t *testing.T) {
	var vb ValidationBuilder
	vb.Require(true, "should not appear").
		Require(false, "first failure").
		Requiref(1 == 2, "second failure: %d != %d", 1, 2)

	if !vb.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	if len(vb.Messages()) != 2 {
		t.Fatalf("Messages() = %v, want 2 entries", vb.Messages())
	}

	err := vb.Build()
	if err == nil {
		t.Fatal("Build() = nil, want ValidationError")
	}
	if !errors.Is(err, ErrValidationFailed) {
		t.Error("ValidationError should unwrap to ErrValidationFailed")
	}
}

func TestValidationBuilderNoErrors(t *testing.T) {
	var vb ValidationBuilder
	vb.Require(true, "unreachable")
	if vb.HasErrors() {
		t.Error("HasErrors() = true, want false")
	}
	if vb.Build() != nil {
		t.Error("Build() should return nil when nothing failed")
	}
}
