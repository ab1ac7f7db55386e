package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabricbd/bdctl/pkg/model"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <directory>",
	Short: "Run discovery over a directory of per-device CLI dumps",
	Long: `Run the full Discovery → Classification → Consolidation pipeline
(BD-PROC) over a directory of per-device bridge-domain and VLAN-config
dumps (spec C1-C6).

Examples:
  bdctl discover /var/lib/bdctl/discovery
  bdctl discover /var/lib/bdctl/discovery --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := app.fabric.Discover(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(report)
		}

		printDiscoveryReport(report)
		return nil
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&app.jsonOutput, "json", false, "JSON output")
}

func printDiscoveryReport(report *model.DiscoveryReport) {
	fmt.Printf("Consolidated bridge domains: %d\n", len(report.Consolidated))
	fmt.Printf("Individual bridge domains:   %d\n", len(report.Individuals))
	fmt.Printf("Diagnostics:                 %d\n", len(report.Diagnostics))

	if len(report.Consolidated) > 0 {
		fmt.Println()
		t := newBDTable()
		for _, bd := range report.Consolidated {
			addBDRow(t, bd)
		}
		t.Flush()
	}

	if len(report.Diagnostics) > 0 {
		fmt.Println("\nDiagnostics:")
		for _, d := range report.Diagnostics {
			fmt.Printf("  [%s] device=%s bd=%s: %s\n", d.Code, dash(d.Device), dash(d.BDName), d.Detail)
		}
	}
}
