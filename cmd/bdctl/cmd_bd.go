package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fabricbd/bdctl/pkg/cli"
	"github.com/fabricbd/bdctl/pkg/model"
	"github.com/fabricbd/bdctl/pkg/store"
)

var bdCmd = &cobra.Command{
	Use:   "bd",
	Short: "Inspect consolidated bridge domains",
	Long: `Inspect consolidated bridge domains from the BD Store.

Examples:
  bdctl bd list
  bdctl bd list --user alice --type 4A
  bdctl g_alice_v251 bd show`,
}

var (
	bdListUser  string
	bdListType  string
	bdListVMin  int
	bdListVMax  int
	bdListState string
)

var bdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List consolidated bridge domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.Filter{
			User:            bdListUser,
			DNAASType:       model.DNAASType(bdListType),
			VLANMin:         bdListVMin,
			VLANMax:         bdListVMax,
			AssignmentState: bdListState,
		}
		if bdListVMin != 0 || bdListVMax != 0 {
			filter.HasVLANRange = true
		}

		bds, err := app.fabric.ListBDs(filter)
		if err != nil {
			return fmt.Errorf("listing bridge domains: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(bds)
		}

		sort.Slice(bds, func(i, j int) bool { return bds[i].PrimaryName < bds[j].PrimaryName })

		if len(bds) == 0 {
			fmt.Println("No bridge domains found")
			return nil
		}

		t := newBDTable()
		for _, bd := range bds {
			addBDRow(t, bd)
		}
		t.Flush()
		return nil
	},
}

var bdShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show detailed bridge domain information",
	Long: `Show detailed information about one consolidated bridge domain.

Requires -b (bridge domain) flag.

Examples:
  bdctl -b g_alice_v251 bd show
  bdctl g_alice_v251 bd show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := requireBD()
		if err != nil {
			return err
		}

		bd, err := app.fabric.GetBD(name)
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(bd)
		}

		printBDDetail(bd)
		return nil
	},
}

func init() {
	bdListCmd.Flags().StringVar(&bdListUser, "user", "", "Filter by username")
	bdListCmd.Flags().StringVar(&bdListType, "type", "", "Filter by DNAAS type (1, 2A, 2B, 3, 4A, 4B, 5)")
	bdListCmd.Flags().IntVar(&bdListVMin, "vlan-min", 0, "Filter by minimum global identifier VLAN")
	bdListCmd.Flags().IntVar(&bdListVMax, "vlan-max", 0, "Filter by maximum global identifier VLAN")
	bdListCmd.Flags().StringVar(&bdListState, "state", "", "Filter by assignment state (available, assigned, editing, deployed)")

	bdCmd.AddCommand(bdListCmd)
	bdCmd.AddCommand(bdShowCmd)
}

func newBDTable() *cli.Table {
	return cli.NewTable("PRIMARY NAME", "TYPE", "USER", "GLOBAL ID", "DEVICES", "ENDPOINTS", "STATE")
}

func addBDRow(t *cli.Table, bd *model.ConsolidatedBridgeDomain) {
	user := "-"
	if bd.Username != nil {
		user = *bd.Username
	}
	globalID := "-"
	if bd.GlobalIdentifier != nil {
		globalID = fmt.Sprintf("%d", *bd.GlobalIdentifier)
	}
	t.Row(
		bd.PrimaryName,
		fmt.Sprintf("%s (%s)", string(bd.DNAASType), bd.DNAASType.Name()),
		user,
		globalID,
		fmt.Sprintf("%d", len(bd.Devices)),
		fmt.Sprintf("%d", bd.InterfaceCount()),
		dash(bd.AssignmentState),
	)
}

func printBDDetail(bd *model.ConsolidatedBridgeDomain) {
	fmt.Printf("Bridge Domain: %s\n", bold(bd.PrimaryName))
	fmt.Printf("DNAAS Type:    %s (%s)\n", bd.DNAASType, bd.DNAASType.Name())
	if bd.Username != nil {
		fmt.Printf("User:          %s\n", *bd.Username)
	}
	if bd.GlobalIdentifier != nil {
		fmt.Printf("Global ID:     %d\n", *bd.GlobalIdentifier)
	}
	fmt.Printf("State:         %s\n", dash(bd.AssignmentState))
	fmt.Printf("Consolidation: %s\n", bd.ConsolidationKey)
	if len(bd.Consolidation.Represents) > 0 {
		fmt.Printf("Represents:    %s (%s)\n", strings.Join(bd.Consolidation.Represents, ", "), bd.Consolidation.SelectionReason)
	}

	fmt.Println("\nDevices:")
	devices := bd.DeviceNames()
	sort.Strings(devices)
	for _, dev := range devices {
		ifaces := bd.Devices[dev]
		fmt.Printf("  %s (%d interfaces)\n", dev, len(ifaces))
		for _, iface := range ifaces {
			editable := ""
			if iface.Role == model.RoleAccess {
				editable = " [customer-editable]"
			}
			fmt.Printf("    %-24s role=%-10s %s%s\n", iface.Name, iface.Role, vlanSummary(iface.VLAN), editable)
		}
	}
}

func vlanSummary(v model.VLANFacts) string {
	switch v.Kind {
	case model.VLANSingle:
		return fmt.Sprintf("vlan-id=%d", v.VLANID)
	case model.VLANList:
		return fmt.Sprintf("vlan-list=%v", v.VLANList)
	case model.VLANRange:
		return fmt.Sprintf("vlan-range=%d-%d", v.RangeLow, v.RangeHigh)
	case model.VLANQinQ:
		return fmt.Sprintf("outer=%d inner=%d", v.OuterVLAN, v.InnerVLAN)
	case model.VLANManipulation:
		if v.Manipulation != nil {
			return v.Manipulation.String()
		}
		return "manipulation"
	case model.VLANPortMode:
		return "port-mode"
	default:
		return "(no vlan facts)"
	}
}
