package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fabricbd/bdctl/pkg/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.bdctl/config.yaml.

Examples:
  bdctl settings show
  bdctl settings path`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", config.DefaultSettingsPath())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SETTING\tVALUE")
		fmt.Fprintln(w, "-------\t-----")
		fmt.Fprintf(w, "discovery_dir\t%s\n", dash(s.DiscoveryDir))
		fmt.Fprintf(w, "redis_addr\t%s\n", dash(s.RedisAddr))
		fmt.Fprintf(w, "redis_db\t%d\n", s.RedisDB)
		fmt.Fprintf(w, "worker_pool_size\t%d\n", s.WorkerPoolSize)
		fmt.Fprintf(w, "session_ttl_hours\t%d\n", s.SessionTTLHours)
		fmt.Fprintf(w, "deploy_timeout_sec\t%d\n", s.DeployTimeoutSec)
		fmt.Fprintf(w, "audit_log_path\t%s\n", dash(s.AuditLogPath))
		w.Flush()
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.DefaultSettingsPath())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
