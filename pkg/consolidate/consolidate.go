// Package consolidate implements the Consolidation Engine (C5): grouping
// ProcessedBridgeDomain fragments by consolidation key into a single
// network-wide ConsolidatedBridgeDomain, with primary-name selection and
// conflict splitting.
package consolidate

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/fabricbd/bdctl/pkg/model"
)

var standardNameRe = regexp.MustCompile(`^g_[a-zA-Z0-9]+_v\d+$`)

// Consolidate groups members by ConsolidationKey and reduces each group to
// one ConsolidatedBridgeDomain, single-threaded and deterministic (spec
// §5: "single-threaded reduce over keyed groups; deterministic for
// identical inputs — primary-name tie-break is lexicographic").
func Consolidate(members []*model.ProcessedBridgeDomain) ([]*model.ConsolidatedBridgeDomain, []model.Diagnostic) {
	groups := make(map[string][]*model.ProcessedBridgeDomain)
	var keys []string
	for _, m := range members {
		if _, ok := groups[m.ConsolidationKey]; !ok {
			keys = append(keys, m.ConsolidationKey)
		}
		groups[m.ConsolidationKey] = append(groups[m.ConsolidationKey], m)
	}
	sort.Strings(keys)

	var results []*model.ConsolidatedBridgeDomain
	var diags []model.Diagnostic

	for _, key := range keys {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Device != group[j].Device {
				return group[i].Device < group[j].Device
			}
			return group[i].BDName < group[j].BDName
		})
		consistent, rest, splitDiag := splitOnAgreement(key, group)
		results = append(results, reduceGroup(key, consistent))
		if splitDiag != nil {
			diags = append(diags, *splitDiag)
		}
		for _, stray := range rest {
			individualKey := "INDIVIDUAL|" + stray.BDName
			results = append(results, reduceGroup(individualKey, []*model.ProcessedBridgeDomain{stray}))
		}
	}

	return results, diags
}

// splitOnAgreement implements spec §4.C5: all members of a group must
// agree on dnaas_type and global_identifier. On disagreement, the largest
// subgroup that agrees is kept consolidated; the rest are demoted to
// individuals and a ConsolidationSplit diagnostic is emitted.
func splitOnAgreement(key string, group []*model.ProcessedBridgeDomain) ([]*model.ProcessedBridgeDomain, []*model.ProcessedBridgeDomain, *model.Diagnostic) {
	if len(group) <= 1 {
		return group, nil, nil
	}

	type agreementKey struct {
		dnaasType model.DNAASType
		globalID  int
		hasGlobal bool
	}
	byAgreement := make(map[agreementKey][]*model.ProcessedBridgeDomain)
	var order []agreementKey

	for _, m := range group {
		ak := agreementKey{dnaasType: m.DNAASType}
		if m.GlobalIdentifier != nil {
			ak.globalID = *m.GlobalIdentifier
			ak.hasGlobal = true
		}
		if _, ok := byAgreement[ak]; !ok {
			order = append(order, ak)
		}
		byAgreement[ak] = append(byAgreement[ak], m)
	}

	if len(order) == 1 {
		return group, nil, nil
	}

	// Pick the largest subgroup; ties broken by stable encounter order so
	// the result is deterministic across identical input orderings.
	bestIdx := 0
	for i := 1; i < len(order); i++ {
		if len(byAgreement[order[i]]) > len(byAgreement[order[bestIdx]]) {
			bestIdx = i
		}
	}
	consistent := byAgreement[order[bestIdx]]

	var rest []*model.ProcessedBridgeDomain
	for i, ak := range order {
		if i == bestIdx {
			continue
		}
		rest = append(rest, byAgreement[ak]...)
	}

	diag := model.NewDiagnostic(model.DiagConsolidationSplit, "", consistent[0].BDName,
		fmt.Sprintf("consolidation key %q: %d of %d members disagreed on dnaas_type/global_identifier and were demoted to individuals", key, len(rest), len(group)))
	return consistent, rest, &diag
}

// reduceGroup merges one agreeing group into a ConsolidatedBridgeDomain.
func reduceGroup(key string, group []*model.ProcessedBridgeDomain) *model.ConsolidatedBridgeDomain {
	primary, reason := choosePrimaryName(group)

	devices := make(map[string][]*model.Interface)
	seen := make(map[string]bool) // "device|iface" dedup, spec §4.C6
	var represents []string

	for _, m := range group {
		represents = append(represents, m.BDName)
		for _, iface := range m.Members {
			dedupKey := iface.Device + "|" + iface.Name
			if seen[dedupKey] {
				continue
			}
			seen[dedupKey] = true
			devices[iface.Device] = append(devices[iface.Device], iface)
		}
	}

	first := group[0]
	return &model.ConsolidatedBridgeDomain{
		ConsolidationKey: key,
		PrimaryName:      primary,
		DNAASType:        first.DNAASType,
		GlobalIdentifier: first.GlobalIdentifier,
		Username:         first.Username,
		Members:          group,
		Devices:          devices,
		Consolidation: model.ConsolidationInfo{
			Represents:      represents,
			SelectionReason: reason,
		},
	}
}

// choosePrimaryName implements the §4.C5 primary-name preference order:
// exact "g_<user>_v<id>" match, then shortest name, then lexicographic.
func choosePrimaryName(group []*model.ProcessedBridgeDomain) (string, string) {
	for _, m := range group {
		if standardNameRe.MatchString(m.BDName) {
			return m.BDName, "standard_format_preferred"
		}
	}

	names := make([]string, len(group))
	for i, m := range group {
		names[i] = m.BDName
	}
	sort.Strings(names)

	shortest := names[0]
	for _, n := range names {
		if len(n) < len(shortest) || (len(n) == len(shortest) && n < shortest) {
			shortest = n
		}
	}
	if countLen(names, len(shortest)) == 1 {
		return shortest, "shortest_name"
	}
	return shortest, "lexicographic"
}

func countLen(names []string, length int) int {
	n := 0
	for _, name := range names {
		if len(name) == length {
			n++
		}
	}
	return n
}
