// bdctl manages the lifecycle of Ethernet bridge domains across a
// leaf/spine/superspine fabric: discovery from per-device CLI dumps,
// DNAAS classification, network-wide consolidation, and type-aware
// edit/diff/deploy over SSH.
//
// Noun-group CLI pattern:
//
//	bdctl <bd-name> <resource> <action> [args] [-x]
//
// The first argument is the bridge-domain primary name unless it matches a
// known command. Commands that don't need a BD (discover, settings,
// version) work without one.
//
// Examples:
//
//	bdctl discover /var/lib/bdctl/discovery
//	bdctl bd list --type 4A
//	bdctl g_alice_v251 bd show
//	bdctl g_alice_v251 edit begin --user alice
//	bdctl g_alice_v251 edit add-interface L-C ge100-0/0/2 --vlan-id 251
//	bdctl g_alice_v251 edit preview
//	bdctl g_alice_v251 edit deploy -x
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fabricbd/bdctl/pkg/audit"
	"github.com/fabricbd/bdctl/pkg/bdfabric"
	"github.com/fabricbd/bdctl/pkg/classify"
	"github.com/fabricbd/bdctl/pkg/cli"
	"github.com/fabricbd/bdctl/pkg/config"
	"github.com/fabricbd/bdctl/pkg/deploy"
	"github.com/fabricbd/bdctl/pkg/deploy/sshexec"
	"github.com/fabricbd/bdctl/pkg/log"
	"github.com/fabricbd/bdctl/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	// Context flag
	bdName string

	// Option flags
	settingsPath string
	lldpPath     string
	executeMode  bool
	verbose      bool
	jsonOutput   bool

	// Initialized state (set in PersistentPreRunE)
	settings *config.Settings
	fabric   *bdfabric.Fabric
}

var app = &App{}

func main() {
	// Implicit BD-name: if the first arg is not a known command or flag,
	// treat it as a bridge-domain primary name. This lets users write:
	//   bdctl g_alice_v251 edit preview
	// instead of:
	//   bdctl -b g_alice_v251 edit preview
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") && !isKnownCommand(os.Args[1]) {
		os.Args = append([]string{os.Args[0], "-b", os.Args[1]}, os.Args[2:]...)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isKnownCommand checks if a string matches a registered top-level command name.
func isKnownCommand(name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return true
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return true
			}
		}
	}
	return name == "help" || name == "completion"
}

var rootCmd = &cobra.Command{
	Use:               "bdctl",
	Short:             "Bridge domain lifecycle manager",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `bdctl discovers, classifies, consolidates, and edits Ethernet
bridge domains across a leaf/spine/superspine fabric.

Commands are organized by resource (bd, edit, discover, audit, settings).
Deploy commands preview changes by default — use -x to execute.

  bdctl <bd-name> <resource> <action> [args] [-x]

The first argument is the bridge-domain primary name unless it matches a
known command. Each resource takes its natural key as a positional argument:

  bdctl discover /var/lib/bdctl/discovery
  bdctl bd list --type 4A
  bdctl g_alice_v251 bd show
  bdctl g_alice_v251 edit begin --user alice
  bdctl settings show                          # no BD needed`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		if app.settingsPath != "" {
			app.settings, err = config.LoadFrom(app.settingsPath)
		} else {
			app.settings, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		if app.verbose {
			log.SetLevel("debug")
		} else {
			log.SetLevel("warn")
		}

		lldp := classify.LLDPMap{}
		if app.lldpPath != "" {
			lldp, err = classify.LoadLLDPMap(app.lldpPath)
			if err != nil {
				return fmt.Errorf("loading lldp map: %w", err)
			}
		}

		exec := deploy.Executor(sshexec.New(sshexec.Credentials{User: os.Getenv("BDCTL_SSH_USER"), Password: os.Getenv("BDCTL_SSH_PASSWORD")}))
		app.fabric = bdfabric.New(app.settings, lldp, exec)

		auditPath := app.settings.AuditLogPath
		if auditPath == "" {
			auditPath = "/var/log/bdctl/audit.log"
		}
		auditLogger, err := audit.NewFileLogger(auditPath, audit.RotationConfig{
			MaxSize:    int64(app.settings.AuditMaxSizeMB) * 1024 * 1024,
			MaxBackups: app.settings.AuditMaxBackups,
		})
		if err != nil {
			log.WithField("path", auditPath).Warnf("could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
}

func init() {
	// Context flag (object selector)
	rootCmd.PersistentFlags().StringVarP(&app.bdName, "bd", "b", "", "Bridge domain primary name")

	// Option flags (global)
	rootCmd.PersistentFlags().StringVarP(&app.settingsPath, "config", "c", "", "Settings file path")
	rootCmd.PersistentFlags().StringVar(&app.lldpPath, "lldp", "", "LLDP neighbor map JSON path")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")

	for _, cmd := range []*cobra.Command{editCmd, bdCmd} {
		addOutputFlags(cmd)
	}
	addWriteFlags(editDeployCmd)

	rootCmd.AddGroup(
		&cobra.Group{ID: "resource", Title: "Resource Commands:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{discoverCmd, bdCmd, editCmd, sessionCmd} {
		cmd.GroupID = "resource"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Printf("bdctl dev build (version info is set with -ldflags, see pkg/version)\n")
		} else {
			fmt.Printf("bdctl %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}

// requireBD ensures a bridge-domain name is specified via -b flag.
func requireBD() (string, error) {
	if app.bdName == "" {
		return "", fmt.Errorf("bridge domain required: use -b <bd-name> flag")
	}
	return app.bdName, nil
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings,
// help, or version command.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// addWriteFlags registers -x/--execute as a local flag.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&app.executeMode, "execute", "x", false, "Execute deployment (default is preview only)")
}

// addOutputFlags registers --json as a local flag.
// For noun-group parent commands, this is a PersistentFlag so subcommands inherit.
func addOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVar(&app.jsonOutput, "json", false, "JSON output")
}

// Color helpers — delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }

// dash returns s if non-empty, otherwise "-".
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printDryRunNotice prints the standard dry-run reminder for edit/deploy commands.
func printDryRunNotice() {
	if !app.executeMode {
		fmt.Println("\n" + yellow("PREVIEW ONLY: no device touched. Use -x to deploy."))
	}
}
