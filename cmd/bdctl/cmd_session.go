package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect edit sessions across all bridge domains",
	Long: `List or recover edit sessions without needing -b first, for the
operator-facing "what's in flight" view across the whole fabric (spec
§4.C7: sessions outlive a single process).

Examples:
  bdctl session list
  bdctl session recover a1b2c3d4`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every currently open edit session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := app.fabric.ListActiveSessions()
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(sessions)
		}

		if len(sessions) == 0 {
			fmt.Println("No open edit sessions")
			return nil
		}

		sort.Slice(sessions, func(i, j int) bool { return sessions[i].BDName < sessions[j].BDName })

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tBD\tUSER\tSTATUS\tCHANGES")
		fmt.Fprintln(w, "-------\t--\t----\t------\t-------")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", s.ID, s.BDName, s.User, s.Status, s.Changes)
		}
		w.Flush()
		return nil
	},
}

var sessionRecoverCmd = &cobra.Command{
	Use:   "recover <session-id>",
	Short: "Recover a session directly by id",
	Long: `Recover an edit session by its id rather than by the -b/--bd lookup
(which only finds the single open session for a BD). Useful when an operator
already has the session id from 'bdctl session list' and wants to resume it
without setting -b.

Prints the same status view as 'edit status'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := app.fabric.RecoverSession(args[0])
		if err != nil {
			return fmt.Errorf("recovering session %s: %w", args[0], err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(session)
		}

		fmt.Printf("Session:  %s\n", session.ID)
		fmt.Printf("BD:       %s\n", session.BDName)
		fmt.Printf("User:     %s\n", session.User)
		fmt.Printf("Status:   %s\n", session.Status)
		fmt.Printf("Changes:  %d (undo position %d)\n", len(session.Changes), session.UndoPos())
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionRecoverCmd)

	addOutputFlags(sessionCmd)
}
