package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabricbd/bdctl/pkg/audit"
	"github.com/fabricbd/bdctl/pkg/deploy"
	"github.com/fabricbd/bdctl/pkg/editsession"
	"github.com/fabricbd/bdctl/pkg/model"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a bridge domain's working copy and deploy the diff",
	Long: `Open and drive an edit session on a bridge domain's isolated working
copy (spec §4.C7), preview the type-aware command plan (§4.C8), and deploy
it through commit-check/apply/rollback (§4.C9).

Requires -b (bridge domain) flag.

Examples:
  bdctl -b g_alice_v251 edit begin --user alice
  bdctl -b g_alice_v251 edit add-interface L-C ge100-0/0/2 --vlan-id 251
  bdctl -b g_alice_v251 edit preview
  bdctl -b g_alice_v251 edit deploy -x`,
}

var editBeginUser string

var editBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Begin an edit session",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := requireBD()
		if err != nil {
			return err
		}
		if editBeginUser == "" {
			return fmt.Errorf("--user is required")
		}

		start := time.Now()
		session, err := app.fabric.BeginEdit(name, editBeginUser)
		recordAudit(audit.EventTypeBeginEdit, name, "", editBeginUser, nil, start, err)
		if err != nil {
			return err
		}

		fmt.Printf("Session %s opened on %s by %s\n", session.ID, name, session.User)
		return nil
	},
}

var editStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active edit session for this bridge domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := requireBD()
		if err != nil {
			return err
		}
		session, err := app.fabric.ActiveSession(name)
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(session)
		}

		fmt.Printf("Session:  %s\n", session.ID)
		fmt.Printf("BD:       %s\n", session.BDName)
		fmt.Printf("User:     %s\n", session.User)
		fmt.Printf("Status:   %s\n", session.Status)
		fmt.Printf("Changes:  %d (undo position %d)\n", len(session.Changes), session.UndoPos())
		for i, c := range session.Changes {
			fmt.Printf("  %d. %s %s/%s\n", i+1, c.Kind, c.Device, c.Iface)
		}
		return nil
	},
}

// vlanFlags captures the raw --vlan-id/--outer-vlan/--inner-vlan/--vlan-list/
// --vlan-range flags shared by add-interface and modify-interface.
var (
	flagVLANID    int
	flagOuterVLAN int
	flagInnerVLAN int
)

func buildVLANFacts() model.VLANFacts {
	switch {
	case flagOuterVLAN != 0 && flagInnerVLAN != 0:
		return model.VLANFacts{Kind: model.VLANQinQ, OuterVLAN: flagOuterVLAN, InnerVLAN: flagInnerVLAN, HasOuter: true, HasInner: true}
	case flagVLANID != 0:
		return model.VLANFacts{Kind: model.VLANSingle, VLANID: flagVLANID}
	default:
		return model.VLANFacts{}
	}
}

var editAddInterfaceCmd = &cobra.Command{
	Use:   "add-interface <device> <interface>",
	Short: "Add a customer endpoint to the working copy",
	Long: `Add a new customer endpoint to the bridge domain's working copy.

Examples:
  bdctl -b g_alice_v251 edit add-interface L-C ge100-0/0/2 --vlan-id 251
  bdctl -b bundle-77.210 edit add-interface L-C ge100-0/0/2 --outer-vlan 210 --inner-vlan 400`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, iface := args[0], args[1]
		after := buildVLANFacts()
		return withMutableSession(func(session *model.EditSession) error {
			change := model.Change{
				Kind:       model.ChangeAddInterface,
				Device:     device,
				Iface:      iface,
				After:      &after,
				Reversible: true,
			}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editRemoveInterfaceCmd = &cobra.Command{
	Use:   "remove-interface <device> <interface>",
	Short: "Remove a customer endpoint from the working copy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, iface := args[0], args[1]
		return withMutableSession(func(session *model.EditSession) error {
			existing, _ := session.WorkingCopy.FindInterface(device, iface)
			var before *model.VLANFacts
			if existing != nil {
				b := existing.VLAN
				before = &b
			}
			change := model.Change{
				Kind:       model.ChangeRemoveInterface,
				Device:     device,
				Iface:      iface,
				Before:     before,
				Reversible: before != nil,
			}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editMoveInterfaceCmd = &cobra.Command{
	Use:   "move-interface <device> <interface> <to-device> <to-interface>",
	Short: "Move a customer endpoint, preserving its VLAN facts",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, iface, toDevice, toIface := args[0], args[1], args[2], args[3]
		return withMutableSession(func(session *model.EditSession) error {
			existing, _ := session.WorkingCopy.FindInterface(device, iface)
			var before *model.VLANFacts
			if existing != nil {
				b := existing.VLAN
				before = &b
			}
			change := model.Change{
				Kind:       model.ChangeMoveInterface,
				Device:     device,
				Iface:      iface,
				ToDevice:   toDevice,
				ToIface:    toIface,
				Before:     before,
				After:      before,
				Reversible: before != nil,
			}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editModifyInterfaceCmd = &cobra.Command{
	Use:   "modify-interface <device> <interface>",
	Short: "Modify a customer endpoint's VLAN facts",
	Long: `Modify the VLAN facts on an existing customer endpoint.

Examples:
  bdctl -b g_alice_v251 edit modify-interface L-A ge100-0/0/5.251 --vlan-id 252`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, iface := args[0], args[1]
		after := buildVLANFacts()
		return withMutableSession(func(session *model.EditSession) error {
			existing, _ := session.WorkingCopy.FindInterface(device, iface)
			var before *model.VLANFacts
			if existing != nil {
				b := existing.VLAN
				before = &b
			}
			field := model.FieldVLANID
			if after.Kind == model.VLANQinQ {
				field = model.FieldOuterVLAN
			}
			change := model.Change{
				Kind:       model.ChangeModifyInterface,
				Device:     device,
				Iface:      iface,
				Field:      field,
				Before:     before,
				After:      &after,
				Reversible: before != nil,
			}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editChangeVLANIDCmd = &cobra.Command{
	Use:   "change-vlan-id <new-vlan-id>",
	Short: "Cascade a BD-wide VLAN ID change to every customer interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntArg(args[0])
		if err != nil {
			return err
		}
		return withMutableSession(func(session *model.EditSession) error {
			after := model.VLANFacts{Kind: model.VLANSingle, VLANID: id}
			change := model.Change{Kind: model.ChangeVLANID, Field: model.FieldVLANID, After: &after, Reversible: true}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editChangeOuterVLANCmd = &cobra.Command{
	Use:   "change-outer-vlan <new-outer-vlan>",
	Short: "Cascade a BD-wide outer VLAN change to every customer interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntArg(args[0])
		if err != nil {
			return err
		}
		return withMutableSession(func(session *model.EditSession) error {
			after := model.VLANFacts{Kind: model.VLANManipulation, OuterVLAN: id, HasOuter: true}
			change := model.Change{Kind: model.ChangeOuterVLAN, Field: model.FieldOuterVLAN, After: &after, Reversible: true}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editChangeInnerVLANCmd = &cobra.Command{
	Use:   "change-inner-vlan <new-inner-vlan>",
	Short: "Cascade a BD-wide inner VLAN change to every customer interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntArg(args[0])
		if err != nil {
			return err
		}
		return withMutableSession(func(session *model.EditSession) error {
			after := model.VLANFacts{Kind: model.VLANQinQ, InnerVLAN: id, HasInner: true}
			change := model.Change{Kind: model.ChangeInnerVLAN, Field: model.FieldInnerVLAN, After: &after, Reversible: true}
			result, err := app.fabric.ApplyChange(session, change)
			return reportValidation(result, err)
		})
	},
}

var editUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the last applied change",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMutableSession(func(session *model.EditSession) error {
			return app.fabric.Undo(session)
		})
	},
}

var editRedoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Redo the last undone change",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMutableSession(func(session *model.EditSession) error {
			return app.fabric.Redo(session)
		})
	},
}

var editPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Compute the type-aware deployment plan without touching any device",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(session *model.EditSession) error {
			start := time.Now()
			preview, err := app.fabric.Preview(session)
			recordAudit(audit.EventTypePreview, session.BDName, "", session.User, session.Changes, start, err)
			if err != nil {
				return err
			}

			if app.jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(preview)
			}
			printPlan(preview.Plan)
			return nil
		})
	},
}

var editDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the pending changes (preview only unless -x is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(session *model.EditSession) error {
			if !app.executeMode {
				preview, err := app.fabric.Preview(session)
				if err != nil {
					return err
				}
				printPlan(preview.Plan)
				printDryRunNotice()
				return nil
			}

			start := time.Now()
			result, err := app.fabric.Deploy(context.Background(), session)
			recordAudit(audit.EventTypeDeploy, session.BDName, "", session.User, session.Changes, start, err)
			if err != nil {
				return err
			}

			if app.jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printDeploymentResult(result)
			return nil
		})
	},
}

var editCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the working copy and release the BD lock",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(session *model.EditSession) error {
			start := time.Now()
			err := app.fabric.CancelEdit(session)
			recordAudit(audit.EventTypeCancel, session.BDName, "", session.User, session.Changes, start, err)
			if err != nil {
				return err
			}
			fmt.Printf("Session %s cancelled\n", session.ID)
			return nil
		})
	},
}

// withSession recovers the active session for -b and hands it to fn. Use
// this for operations that persist their own terminal state (preview,
// deploy, cancel).
func withSession(fn func(session *model.EditSession) error) error {
	name, err := requireBD()
	if err != nil {
		return err
	}
	session, err := app.fabric.ActiveSession(name)
	if err != nil {
		return err
	}
	return fn(session)
}

// withMutableSession recovers the active session for -b, hands it to fn,
// and persists the mutation fn made so a later invocation can resume it
// (spec §4.C7: sessions outlive a single process). Use this for
// add/remove/move/modify/change-*/undo/redo, none of which save on their
// own.
func withMutableSession(fn func(session *model.EditSession) error) error {
	name, err := requireBD()
	if err != nil {
		return err
	}
	session, err := app.fabric.ActiveSession(name)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	return app.fabric.SaveSession(session)
}

func reportValidation(result editsession.ValidationResult, err error) error {
	if err != nil {
		return err
	}
	if !result.Accepted {
		return fmt.Errorf("change rejected: %s", result.Reason)
	}
	fmt.Println(green("change applied"))
	return nil
}

func parseIntArg(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid integer: %s", s)
	}
	return n, nil
}

func printPlan(plan *model.DeploymentPlan) {
	if plan.IsEmpty() {
		fmt.Println("Plan is empty: no pending changes.")
		return
	}
	for _, device := range plan.DeviceOrder {
		fmt.Printf("\n%s:\n", bold(device))
		for _, line := range plan.CommandsByDevice[device] {
			fmt.Printf("  %s\n", line)
		}
	}
	fmt.Printf("\nImpact: %d customer endpoint(s), %d device(s) touched, downtime=%s\n",
		plan.Impact.CustomerEndpointsAffected, len(plan.Impact.DevicesTouched), plan.Impact.Downtime)
	for _, w := range plan.Impact.Warnings {
		fmt.Println("  " + yellow("warning: "+w))
	}
}

func printDeploymentResult(result *deploy.DeploymentResult) {
	status := string(result.Status)
	switch result.Status {
	case model.SessionDeployed:
		status = green(status)
	case model.SessionRolledBack, model.SessionUnknown:
		status = yellow(status)
	default:
		status = red(status)
	}
	fmt.Printf("Deployment %s: %s\n", result.BDName, status)
	for _, step := range result.Steps {
		outcome := green("ok")
		if !step.Success {
			outcome = red("failed: " + step.Error)
		}
		fmt.Printf("  %-10s %-14s %s\n", step.Device, step.Phase, outcome)
	}
	for _, diag := range result.Diagnostics {
		fmt.Printf("  %s\n", yellow(fmt.Sprintf("%s device=%s: %s", diag.Code, diag.Device, diag.Detail)))
	}
}

func recordAudit(eventType audit.EventType, bdName, device, user string, changes []model.Change, start time.Time, err error) {
	event := audit.NewEvent(user, bdName, string(eventType)).WithChanges(changes).WithDuration(time.Since(start))
	if device != "" {
		event = event.WithDevice(device)
	}
	if err != nil {
		event = event.WithError(err)
	} else {
		event = event.WithSuccess()
	}
	_ = audit.Log(event)
}

func init() {
	editBeginCmd.Flags().StringVar(&editBeginUser, "user", "", "Operator user name")

	editAddInterfaceCmd.Flags().IntVar(&flagVLANID, "vlan-id", 0, "Single VLAN ID")
	editAddInterfaceCmd.Flags().IntVar(&flagOuterVLAN, "outer-vlan", 0, "Outer VLAN tag")
	editAddInterfaceCmd.Flags().IntVar(&flagInnerVLAN, "inner-vlan", 0, "Inner VLAN tag")

	editModifyInterfaceCmd.Flags().IntVar(&flagVLANID, "vlan-id", 0, "New single VLAN ID")
	editModifyInterfaceCmd.Flags().IntVar(&flagOuterVLAN, "outer-vlan", 0, "New outer VLAN tag")
	editModifyInterfaceCmd.Flags().IntVar(&flagInnerVLAN, "inner-vlan", 0, "New inner VLAN tag")

	editCmd.AddCommand(editBeginCmd)
	editCmd.AddCommand(editStatusCmd)
	editCmd.AddCommand(editAddInterfaceCmd)
	editCmd.AddCommand(editRemoveInterfaceCmd)
	editCmd.AddCommand(editMoveInterfaceCmd)
	editCmd.AddCommand(editModifyInterfaceCmd)
	editCmd.AddCommand(editChangeVLANIDCmd)
	editCmd.AddCommand(editChangeOuterVLANCmd)
	editCmd.AddCommand(editChangeInnerVLANCmd)
	editCmd.AddCommand(editUndoCmd)
	editCmd.AddCommand(editRedoCmd)
	editCmd.AddCommand(editPreviewCmd)
	editCmd.AddCommand(editDeployCmd)
	editCmd.AddCommand(editCancelCmd)
}
