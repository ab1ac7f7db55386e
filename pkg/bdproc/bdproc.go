// Package bdproc implements BD-PROC (C4): the seven-phase per-BD pipeline
// that turns a RawBridgeDomain into a ProcessedBridgeDomain — validation,
// DNAAS classification, global-identifier extraction, username extraction,
// device/interface enrichment, and consolidation-key generation.
package bdproc

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alitto/pond/v2"

	"github.com/fabricbd/bdctl/pkg/classify"
	"github.com/fabricbd/bdctl/pkg/ferrors"
	"github.com/fabricbd/bdctl/pkg/model"
)

// Processor runs the seven BD-PROC phases over RawBridgeDomains, one per
// originating device fragment.
type Processor struct {
	roleAssigner *classify.RoleAssigner
}

// NewProcessor builds a Processor that assigns interface roles using the
// given RoleAssigner (spec §4.C4 Phase 6 defers to §4.C3).
func NewProcessor(roleAssigner *classify.RoleAssigner) *Processor {
	return &Processor{roleAssigner: roleAssigner}
}

// Process runs all seven phases on one RawBridgeDomain. A phase failure
// aborts only this BD (spec §4.C4: "a phase failure aborts only that BD")
// and is reported as an error, not a panic.
func (p *Processor) Process(raw *model.RawBridgeDomain) (*model.ProcessedBridgeDomain, error) {
	if err := p.phase1Validate(raw); err != nil {
		return nil, err
	}

	dnaasType := p.phase2Classify(raw)

	globalID := p.phase3GlobalIdentifier(raw, dnaasType)

	username := p.phase4Username(raw)

	var diags []model.Diagnostic
	for _, iface := range raw.Members {
		if diag := p.roleAssigner.AssignRole(iface); diag != nil {
			diags = append(diags, *diag)
		}
	}

	key := p.phase7ConsolidationKey(dnaasType, username, globalID, raw.BDName)

	return &model.ProcessedBridgeDomain{
		Device:           raw.Device,
		BDName:           raw.BDName,
		Members:          raw.Members,
		DNAASType:        dnaasType,
		QinQDetected:     dnaasType.QinQDetected(),
		GlobalIdentifier: globalID,
		Username:         username,
		ConsolidationKey: key,
		Diagnostics:      diags,
	}, nil
}

// ProcessAll runs Process over every RawBridgeDomain concurrently (spec
// §5: "parallel per BD. Each invocation is pure over its inputs; errors
// are per-BD and do not fail the pipeline"). A per-BD failure is recorded
// as a diagnostic rather than failing the batch.
func ProcessAll(ctx context.Context, p *Processor, raws []*model.RawBridgeDomain, poolSize int) ([]*model.ProcessedBridgeDomain, []model.Diagnostic, error) {
	pool := pond.NewResultPool[*bdResult](poolSize)
	group := pool.NewGroupContext(ctx)

	for _, raw := range raws {
		raw := raw
		group.SubmitErr(func() (*bdResult, error) {
			processed, err := p.Process(raw)
			if err != nil {
				return &bdResult{diag: model.NewDiagnostic(
					model.DiagValidationFailed, raw.Device, raw.BDName, err.Error())}, nil
			}
			return &bdResult{processed: processed}, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, nil, err
	}

	var processed []*model.ProcessedBridgeDomain
	var diags []model.Diagnostic
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.processed != nil {
			processed = append(processed, r.processed)
			diags = append(diags, r.processed.Diagnostics...)
		} else {
			diags = append(diags, r.diag)
		}
	}
	return processed, diags, nil
}

type bdResult struct {
	processed *model.ProcessedBridgeDomain
	diag      model.Diagnostic
}

// phase1Validate implements spec §4.C4 Phase 1: non-empty bd-name, at
// least one member interface, and at least one authoritative VLAN fact
// unless the BD is classifiable as Port-Mode.
func (p *Processor) phase1Validate(raw *model.RawBridgeDomain) error {
	vb := &ferrors.ValidationBuilder{}
	vb.Require(raw.BDName != "", "bd-name must not be empty")
	vb.Require(raw.Device != "", "device must not be empty")
	vb.Require(len(raw.Members) > 0, "bd must have at least one interface")

	hasVLANFact := false
	for _, iface := range raw.Members {
		if !iface.VLAN.IsEmpty() {
			hasVLANFact = true
			break
		}
	}
	if !hasVLANFact && !looksLikePortMode(raw.Members) {
		vb.Require(false, "no interface has an authoritative VLAN fact and bd is not port-mode")
	}

	return vb.Build()
}

func looksLikePortMode(members []*model.Interface) bool {
	for _, iface := range members {
		if iface.Kind != model.KindPhysical || iface.HasSubinterface || !iface.VLAN.IsEmpty() {
			return false
		}
	}
	return true
}

// phase2Classify implements the spec §4.C4 Phase 2 decision table,
// evaluated top-down. Manipulation presence always takes precedence over
// outer/inner tag presence, per the spec's explicit tie-break.
func (p *Processor) phase2Classify(raw *model.RawBridgeDomain) model.DNAASType {
	members := raw.Members

	if looksLikePortMode(members) {
		return model.DNAASPortMode
	}

	var hasManipulation, hasQinQTags, hasRangeOrList, hasSingleID bool
	manipulationActions := make(map[model.ManipulationAction]bool)
	outerTags := make(map[int]bool)

	for _, iface := range members {
		switch iface.VLAN.Kind {
		case model.VLANManipulation:
			hasManipulation = true
			manipulationActions[iface.VLAN.Manipulation.Action] = true
			outerTags[iface.VLAN.Manipulation.OuterTag] = true
		case model.VLANQinQ:
			hasQinQTags = true
		case model.VLANRange, model.VLANList:
			hasRangeOrList = true
		case model.VLANSingle:
			hasSingleID = true
		}
	}

	// Manipulation presence always takes precedence over outer/inner tag
	// presence. A single push rule shared by every member (one outer tag)
	// multiplexes the full customer VLAN space onto it (2A); distinct
	// outer tags across members discretely map separate VLAN groups (2B);
	// a mix of push and pop actions in one BD is a hybrid pattern (3).
	// Member VLAN ranges are not examined: 2A is assigned on the single
	// shared outer tag alone, whether or not a full [1,4094] range is present.
	if hasManipulation {
		switch {
		case len(manipulationActions) > 1:
			return model.DNAASHybrid
		case len(outerTags) > 1:
			return model.DNAASQinQMulti
		default:
			return model.DNAASQinQSingle
		}
	}

	if hasQinQTags {
		return model.DNAASDoubleTagged
	}
	if hasRangeOrList {
		return model.DNAASVLANRangeList
	}
	if hasSingleID {
		return model.DNAASSingleTagged
	}
	return model.DNAASUnknown
}

// phase3GlobalIdentifier implements spec §4.C4 Phase 3.
func (p *Processor) phase3GlobalIdentifier(raw *model.RawBridgeDomain, dnaasType model.DNAASType) *int {
	switch dnaasType {
	case model.DNAASDoubleTagged, model.DNAASQinQSingle, model.DNAASQinQMulti, model.DNAASHybrid:
		return mostCommonOuterVLAN(raw.Members)
	case model.DNAASSingleTagged:
		return mostCommonVLANID(raw.Members)
	case model.DNAASVLANRangeList:
		if id := mostCommonOuterVLAN(raw.Members); id != nil {
			return id
		}
		return nil
	default:
		return nil
	}
}

func mostCommonOuterVLAN(members []*model.Interface) *int {
	counts := make(map[int]int)
	for _, iface := range members {
		if iface.VLAN.HasOuter {
			counts[iface.VLAN.OuterVLAN]++
		}
	}
	return pickMostCommon(counts)
}

func mostCommonVLANID(members []*model.Interface) *int {
	counts := make(map[int]int)
	for _, iface := range members {
		if iface.VLAN.Kind == model.VLANSingle {
			counts[iface.VLAN.VLANID]++
		}
	}
	return pickMostCommon(counts)
}

func pickMostCommon(counts map[int]int) *int {
	if len(counts) == 0 {
		return nil
	}
	best, bestCount := 0, -1
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return &best
}

var (
	namedUserRe  = regexp.MustCompile(`^[gl]_([a-zA-Z0-9]+)_v\d+(?:_\S+)?$`)
	bareUserRe   = regexp.MustCompile(`^([a-zA-Z0-9]+)[_-]v?\d+$`)
	alphaTokenRe = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// phase4Username applies the username extraction patterns from spec
// §4.C4 Phase 4 in order, stopping at the first match.
func (p *Processor) phase4Username(raw *model.RawBridgeDomain) *string {
	name := raw.BDName

	if m := namedUserRe.FindStringSubmatch(name); m != nil {
		return &m[1]
	}
	if m := bareUserRe.FindStringSubmatch(name); m != nil {
		return &m[1]
	}

	for _, tok := range strings.Split(name, "_") {
		if len(tok) >= 3 && alphaTokenRe.MatchString(tok) {
			return &tok
		}
	}
	return nil
}

// phase7ConsolidationKey implements spec §4.C4 Phase 7. Types that cannot
// consolidate at all (Port-Mode, Unknown) always fall back to the
// per-bd-name individual key, regardless of whether a username was found.
func (p *Processor) phase7ConsolidationKey(dnaasType model.DNAASType, username *string, globalID *int, bdName string) string {
	if !dnaasType.AllowsConsolidation() {
		return "INDIVIDUAL|" + bdName
	}
	switch {
	case username != nil && globalID != nil:
		return *username + "|" + strconv.Itoa(*globalID)
	case username != nil:
		return "LOCAL|" + *username + "|" + bdName
	default:
		return "INDIVIDUAL|" + bdName
	}
}
