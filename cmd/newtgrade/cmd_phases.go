package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtgrade/pkg/cli"
	"github.com/newtron-network/newtgrade/pkg/diff"
	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/health"
	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/upgrade"
)

var assumeYesFlag bool

func addConfirmFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&assumeYesFlag, "yes", false, "Approve every confirmation prompt")
}

func confirmer(cmd *cobra.Command) upgrade.Confirmer {
	if assumeYesFlag {
		return assumeYes{out: cmd.OutOrStdout()}
	}
	return newLineConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
}

func newPrecheckCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "precheck",
		Short: "Capture pre-upgrade state and drain the device",
		Long: `Capture every state category and the port health verdicts, save them
with the list of access ports to shut down, then offer to:

  1. put the device into BGP maintenance mode
  2. shut down the access ports (uplinks and non-access ports stay up)

Each step asks for confirmation; only "Y" approves.

A saved precheck is not replaced unless --force is given. With --force the
ports saved by the earlier run stay in the plan so restore re-enables them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := app.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			opts.Overwrite = force

			res, err := s.orchestrator(opts, confirmer(cmd)).Precheck(cmd.Context())
			if res != nil {
				printPrecheck(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	addConfirmFlags(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing saved precheck")
	return cmd
}

func newPostcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "postcheck",
		Short: "Capture post-upgrade state and compare with precheck",
		Long: `Capture every state category again, save it, and report the
differences from the precheck snapshot category by category.

Exits with status 2 when any category differs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := app.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.orchestrator(opts, nil).Postcheck(cmd.Context())
			if res == nil {
				return err
			}
			w := cmd.OutOrStdout()
			printSnapshotSummary(w, res.Snapshot)
			printHealth(w, res.Health)
			if err != nil {
				return err
			}
			if app.jsonOutput {
				return json.NewEncoder(w).Encode(res.Reports)
			}
			if diff.Render(w, res.Reports) > 0 {
				return errDifferences
			}
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Return the device to service",
		Long: `Take the device out of BGP maintenance mode and re-enable the ports
saved by precheck. The saved port list is read before anything changes;
restore refuses to run when no precheck exists for the device.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := app.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.orchestrator(opts, confirmer(cmd)).Restore(cmd.Context())
			if res != nil {
				printRestore(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	addConfirmFlags(cmd)
	return cmd
}

func printPrecheck(w io.Writer, res *upgrade.PrecheckResult) {
	printSnapshotSummary(w, res.Snapshot)
	printHealth(w, res.Health)
	if res.Plan != nil {
		fmt.Fprintf(w, "\n%s %d\n", cli.DotPad("Access ports to shut down", 30), len(res.Plan.Ports))
		if len(res.Plan.Ports) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(res.Plan.Ports, ", "))
		}
	}
	if res.Maintenance != nil {
		printAck(w, "maintenance mode", *res.Maintenance)
	}
	for _, ack := range res.Shutdown {
		printAck(w, "disable", ack)
	}
	printDeclined(w, res.Declined)
}

func printRestore(w io.Writer, res *upgrade.RestoreResult) {
	if res.Plan != nil {
		fmt.Fprintf(w, "%s %d\n", cli.DotPad("Saved ports", 30), len(res.Plan.Ports))
	}
	if res.Maintenance != nil {
		printAck(w, "maintenance mode", *res.Maintenance)
	}
	for _, ack := range res.Enabled {
		printAck(w, "enable", ack)
	}
	printDeclined(w, res.Declined)
}

func printSnapshotSummary(w io.Writer, snap *model.Snapshot) {
	if snap == nil {
		return
	}
	fmt.Fprintf(w, "%s %s (%s)\n", cli.Bold("Snapshot"), snap.Host, snap.Phase)
	for _, c := range model.Categories {
		status := cli.Green("captured")
		if snap.IsMissing(c) {
			status = cli.Yellow("missing")
		}
		fmt.Fprintf(w, "  %s %s\n", cli.DotPad(c.Title(), 28), status)
	}
}

func printHealth(w io.Writer, r *health.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", cli.DotPad("Port health", 30), colorStatus(r.Overall))
	for _, res := range r.Results {
		if res.Status == health.PortStable {
			continue
		}
		fmt.Fprintf(w, "  %-16s %-13s %s\n", res.Port, res.Status, res.Message)
	}
}

func printAck(w io.Writer, what string, ack gnmi.Ack) {
	mark := cli.Green("applied")
	if !ack.Applied() {
		mark = cli.Red(string(ack.Outcome))
	}
	fmt.Fprintf(w, "  %s %s %s\n", what, ack.Path, mark)
}

func printDeclined(w io.Writer, declined []string) {
	for _, gate := range declined {
		fmt.Fprintf(w, "  %s %s\n", cli.Yellow("declined:"), gate)
	}
}

func colorStatus(s health.Status) string {
	switch s {
	case health.StatusOK:
		return cli.Green(string(s))
	case health.StatusWarning:
		return cli.Yellow(string(s))
	default:
		return cli.Red(string(s))
	}
}
