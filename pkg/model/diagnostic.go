package model

// DiagnosticCode is one of the stable diagnostic strings from spec §6.
// These never change shape across releases — callers and the audit log
// match on the code, not on message text.
type DiagnosticCode string

const (
	DiagDataMissing         DiagnosticCode = "DataMissing"
	DiagLLDPMissing         DiagnosticCode = "LLDPMissing"
	DiagInvalidTopology     DiagnosticCode = "InvalidTopology"
	DiagGoldenRuleViolation DiagnosticCode = "GoldenRuleViolation"
	DiagConsolidationSplit  DiagnosticCode = "ConsolidationSplit"
	DiagAlreadyLocked       DiagnosticCode = "AlreadyLocked"
	DiagValidationFailed    DiagnosticCode = "ValidationFailed"
	DiagCommitCheckFailed   DiagnosticCode = "CommitCheckFailed"
	DiagApplyFailed         DiagnosticCode = "ApplyFailed"
	DiagRolledBack          DiagnosticCode = "RolledBack"
)

// Diagnostic is a structured, non-fatal finding attached to a pipeline
// stage's output — BD-PROC errors are per-BD and collected here rather
// than unwinding the outer pipeline (spec §7).
type Diagnostic struct {
	Code   DiagnosticCode
	Device string // device identifier, empty if not device-specific
	BDName string // bd-name, empty if not BD-specific
	Detail string
}

func NewDiagnostic(code DiagnosticCode, device, bdName, detail string) Diagnostic {
	return Diagnostic{Code: code, Device: device, BDName: bdName, Detail: detail}
}
