// Package discover implements the CLI Config Loader (C1) and Interface
// Parser (C2): pairing per-device CLI dumps by device and parsing their
// stanzas into typed Interface and RawBridgeDomain records.
package discover

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/fabricbd/bdctl/pkg/log"
	"github.com/fabricbd/bdctl/pkg/model"
)

// Family names the two dump families the loader pairs per device.
type Family string

const (
	FamilyBD   Family = "bd"
	FamilyVLAN Family = "vlan"
)

var dumpFileRe = regexp.MustCompile(`^(?P<device>[^.]+)\.(?P<family>bd|vlan)\.(?P<ts>\d+)\.txt$`)

// devicePair is the loader's intermediate result: the two raw dumps found
// for one device, picked by the pairing rule in spec §4.C1.
type devicePair struct {
	device   string
	bdDump   string
	vlanDump string
}

// dumpFile is one matched "<device>.<family>.<ts>.txt" file.
type dumpFile struct {
	family Family
	ts     int64
	path   string
}

// LoadResult is C1's output: paired dumps per device plus any DataMissing
// diagnostics for devices with an incomplete family.
type LoadResult struct {
	Pairs       map[string]devicePair
	Diagnostics []model.Diagnostic
}

// Load scans dir for "<device>.<bd|vlan>.<timestamp>.txt" files, pairs
// them by device, and falls back to the newest VLAN file when an exact
// timestamp match is unavailable (spec §4.C1).
func Load(dir string) (*LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byDevice := make(map[string]map[Family][]dumpFile)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := dumpFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		device := m[1]
		family := Family(m[2])
		ts := parseTimestamp(m[3])

		if byDevice[device] == nil {
			byDevice[device] = make(map[Family][]dumpFile)
		}
		byDevice[device][family] = append(byDevice[device][family], dumpFile{
			family: family, ts: ts, path: filepath.Join(dir, e.Name()),
		})
	}

	result := &LoadResult{Pairs: make(map[string]devicePair)}

	devices := make([]string, 0, len(byDevice))
	for d := range byDevice {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	for _, device := range devices {
		families := byDevice[device]
		bdFiles := families[FamilyBD]
		vlanFiles := families[FamilyVLAN]

		if len(bdFiles) == 0 {
			result.Diagnostics = append(result.Diagnostics, model.NewDiagnostic(
				model.DiagDataMissing, device, "", "missing bd dump"))
			continue
		}
		if len(vlanFiles) == 0 {
			result.Diagnostics = append(result.Diagnostics, model.NewDiagnostic(
				model.DiagDataMissing, device, "", "missing vlan dump"))
			continue
		}

		bdFile := newest(bdFiles)
		vlanFile := pairByTimestamp(bdFile, vlanFiles)

		bdContent, err := os.ReadFile(bdFile.path)
		if err != nil {
			return nil, err
		}
		vlanContent, err := os.ReadFile(vlanFile.path)
		if err != nil {
			return nil, err
		}

		result.Pairs[device] = devicePair{
			device:   device,
			bdDump:   stripANSI(string(bdContent)),
			vlanDump: stripANSI(string(vlanContent)),
		}
	}

	return result, nil
}

func parseTimestamp(s string) int64 {
	t, err := time.Parse("20060102150405", s)
	if err == nil {
		return t.Unix()
	}
	var n int64
	for _, c := range s {
		n = n*10 + int64(c-'0')
	}
	return n
}

func newest(files []dumpFile) dumpFile {
	best := files[0]
	for _, f := range files[1:] {
		if f.ts > best.ts {
			best = f
		}
	}
	return best
}

// pairByTimestamp implements the §4.C1 pairing rule: an exact timestamp
// match, falling back to the newest VLAN file for the device.
func pairByTimestamp(bd dumpFile, vlanFiles []dumpFile) dumpFile {
	for _, v := range vlanFiles {
		if v.ts == bd.ts {
			return v
		}
	}
	return newest(vlanFiles)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// ParseAll runs the Interface Parser (C2) over every paired device dump
// concurrently, one worker-pool task per device (spec §5: "embarrassingly
// parallel per device, no shared mutable state across workers").
func ParseAll(ctx context.Context, pairs map[string]devicePair, poolSize int) ([]*model.RawBridgeDomain, []model.Diagnostic, error) {
	pool := pond.NewResultPool[*deviceParseResult](poolSize)
	group := pool.NewGroupContext(ctx)

	devices := make([]string, 0, len(pairs))
	for d := range pairs {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	for _, device := range devices {
		pair := pairs[device]
		group.SubmitErr(func() (*deviceParseResult, error) {
			return parseDevice(pair)
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, nil, err
	}

	var bds []*model.RawBridgeDomain
	var diags []model.Diagnostic
	for _, r := range results {
		if r == nil {
			continue
		}
		bds = append(bds, r.bds...)
		diags = append(diags, r.diags...)
	}
	return bds, diags, nil
}

type deviceParseResult struct {
	bds   []*model.RawBridgeDomain
	diags []model.Diagnostic
}

func parseDevice(pair devicePair) (*deviceParseResult, error) {
	log.WithDevice(pair.device).Debug("parsing device dumps")

	ifaces, diags := parseVLANDump(pair.device, pair.vlanDump)
	bds, bdDiags := parseBDDump(pair.device, pair.bdDump, ifaces)
	diags = append(diags, bdDiags...)

	return &deviceParseResult{bds: bds, diags: diags}, nil
}

var (
	vlanIDRe       = regexp.MustCompile(`^interfaces (\S+) vlan-id (\d+)$`)
	vlanListRe     = regexp.MustCompile(`^interfaces (\S+) vlan-id list (\S+)$`)
	vlanTagsRe     = regexp.MustCompile(`^interfaces (\S+) vlan-tags outer-tag (\d+) inner-tag (\d+)$`)
	manipulationRe = regexp.MustCompile(`^interfaces (\S+) vlan-manipulation ingress-mapping action (push|pop) outer-tag (\d+)(?: outer-tpid (0x[0-9a-fA-F]+))?$`)
	bdMemberRe     = regexp.MustCompile(`^network-services bridge-domain instance (\S+) interface (\S+)$`)
)

// parseVLANDump parses the per-device VLAN-configuration dump into
// Interface records, keyed by interface name (spec §4.C2).
func parseVLANDump(device, dump string) (map[string]*model.Interface, []model.Diagnostic) {
	ifaces := make(map[string]*model.Interface)
	var diags []model.Diagnostic

	ensure := func(name string) *model.Interface {
		if iface, ok := ifaces[name]; ok {
			return iface
		}
		iface := model.NewInterfaceFromName(device, name)
		ifaces[name] = iface
		return iface
	}

	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case vlanTagsRe.MatchString(trimmed):
			m := vlanTagsRe.FindStringSubmatch(trimmed)
			iface := ensure(m[1])
			outer := atoiSafe(m[2])
			inner := atoiSafe(m[3])
			iface.VLAN.Kind = model.VLANQinQ
			iface.VLAN.HasOuter = true
			iface.VLAN.OuterVLAN = outer
			iface.VLAN.HasInner = true
			iface.VLAN.InnerVLAN = inner
			iface.RawCLI = append(iface.RawCLI, trimmed)

		case manipulationRe.MatchString(trimmed):
			m := manipulationRe.FindStringSubmatch(trimmed)
			iface := ensure(m[1])
			action := model.ManipulationPush
			if m[2] == "pop" {
				action = model.ManipulationPop
			}
			outer := atoiSafe(m[3])
			tpid := m[4]
			if tpid == "" {
				tpid = "0x8100"
			}
			iface.VLAN.Kind = model.VLANManipulation
			iface.VLAN.Manipulation = &model.Manipulation{
				Action:   action,
				OuterTag: outer,
				TPID:     tpid,
			}
			iface.VLAN.HasOuter = true
			iface.VLAN.OuterVLAN = outer
			iface.RawCLI = append(iface.RawCLI, trimmed)

		case vlanListRe.MatchString(trimmed):
			m := vlanListRe.FindStringSubmatch(trimmed)
			iface := ensure(m[1])
			applyVLANListOrRange(iface, m[2])
			iface.RawCLI = append(iface.RawCLI, trimmed)

		case vlanIDRe.MatchString(trimmed):
			m := vlanIDRe.FindStringSubmatch(trimmed)
			iface := ensure(m[1])
			iface.VLAN.Kind = model.VLANSingle
			iface.VLAN.VLANID = atoiSafe(m[2])
			iface.RawCLI = append(iface.RawCLI, trimmed)
		}
	}

	for name, iface := range ifaces {
		parent, subID, has := model.SplitInterfaceName(name)
		iface.ParentName = parent
		iface.HasSubinterface = has
		iface.SubinterfaceID = subID
		if model.IsBundle(parent) {
			iface.Kind = model.KindBundle
		} else {
			iface.Kind = model.KindPhysical
		}
	}

	return ifaces, diags
}

func applyVLANListOrRange(iface *model.Interface, spec string) {
	if strings.Contains(spec, "-") && !strings.Contains(spec, ",") {
		parts := strings.SplitN(spec, "-", 2)
		low := atoiSafe(parts[0])
		high := atoiSafe(parts[1])
		iface.VLAN.Kind = model.VLANRange
		iface.VLAN.RangeLow = low
		iface.VLAN.RangeHigh = high
		return
	}
	var list []int
	for _, p := range strings.Split(spec, ",") {
		list = append(list, atoiSafe(strings.TrimSpace(p)))
	}
	iface.VLAN.Kind = model.VLANList
	iface.VLAN.VLANList = list
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// parseBDDump parses the BD-configuration dump, attaching interfaces
// already parsed from the VLAN dump to each BD's member list. An
// interface named in a BD stanza but absent from the VLAN dump is
// retained with no VLAN fact and flagged incomplete (Golden Rule,
// spec §4.C2): the parser never fabricates a VLAN fact from the name.
func parseBDDump(device, dump string, ifaces map[string]*model.Interface) ([]*model.RawBridgeDomain, []model.Diagnostic) {
	bdsByName := make(map[string]*model.RawBridgeDomain)
	order := make([]string, 0)
	var diags []model.Diagnostic

	for _, line := range strings.Split(dump, "\n") {
		trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if trimmed == "" {
			continue
		}
		m := bdMemberRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		bdName, ifaceName := m[1], m[2]

		bd, ok := bdsByName[bdName]
		if !ok {
			bd = &model.RawBridgeDomain{Device: device, BDName: bdName}
			bdsByName[bdName] = bd
			order = append(order, bdName)
		}
		bd.RawCLI = append(bd.RawCLI, trimmed)

		iface, ok := ifaces[ifaceName]
		if !ok {
			iface = model.NewInterfaceFromName(device, ifaceName)
			iface.Incomplete = true
			parent, subID, has := model.SplitInterfaceName(ifaceName)
			iface.ParentName = parent
			iface.HasSubinterface = has
			iface.SubinterfaceID = subID
			if model.IsBundle(parent) {
				iface.Kind = model.KindBundle
			} else {
				iface.Kind = model.KindPhysical
			}
		}
		bd.Members = append(bd.Members, iface)
	}

	bds := make([]*model.RawBridgeDomain, 0, len(order))
	for _, name := range order {
		bds = append(bds, bdsByName[name])
	}
	return bds, diags
}
