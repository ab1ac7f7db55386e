package classify

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LoadLLDPMap reads a JSON array of LLDP neighbor records from path and
// builds an LLDPMap. The input is an operator-supplied side channel with no
// fixed schema contract (spec §4.C3), so fields are pulled by gjson path
// instead of a strict struct unmarshal — an entry missing an optional field
// degrades to an absent neighbor rather than failing the whole load.
//
// Expected shape:
//
//	[{"device": "L-A", "iface": "ge100-0/0/1", "neighbor_device": "S-A", "neighbor_iface": "ge1"}, ...]
func LoadLLDPMap(path string) (LLDPMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lldp map: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("lldp map %s is not valid JSON", path)
	}

	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		return nil, fmt.Errorf("lldp map %s must be a JSON array of neighbor records", path)
	}

	out := make(LLDPMap)
	var parseErr error
	result.ForEach(func(_, entry gjson.Result) bool {
		device := entry.Get("device").String()
		iface := entry.Get("iface").String()
		if device == "" || iface == "" {
			parseErr = fmt.Errorf("lldp map entry missing device/iface: %s", entry.Raw)
			return false
		}
		out[lldpKey(device, iface)] = LLDPNeighbor{
			NeighborDevice: entry.Get("neighbor_device").String(),
			NeighborIface:  entry.Get("neighbor_iface").String(),
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}
