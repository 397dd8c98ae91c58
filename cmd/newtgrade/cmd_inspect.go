package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtgrade/pkg/audit"
	"github.com/newtron-network/newtgrade/pkg/cli"
	"github.com/newtron-network/newtgrade/pkg/diff"
	"github.com/newtron-network/newtgrade/pkg/model"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Compare the stored precheck and postcheck snapshots",
		Long: `Compare the stored precheck and postcheck snapshots of a device
without contacting it. Exits with status 2 when any category differs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := app.requireHost()
			if err != nil {
				return err
			}
			st, closeStore, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			reports := diff.CompareStored(cmd.Context(), st, host)
			if app.jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(reports)
			}
			if diff.Render(cmd.OutOrStdout(), reports) > 0 {
				return errDifferences
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <phase> <category>",
		Short: "Print one stored category document",
		Long: `Print one stored category document as indented JSON.

Phases: precheck, postcheck
Categories: version, bgp, applications, network-instances, interfaces,
fans, power, control, linecards, arp, mac, tunnels, ports`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := app.requireHost()
			if err != nil {
				return err
			}
			phase, err := model.ParsePhase(args[0])
			if err != nil {
				return err
			}
			category, err := model.ParseCategory(args[1])
			if err != nil {
				return err
			}
			st, closeStore, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			data, err := st.ReadCategory(cmd.Context(), host, phase, category)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, data, "", "  "); err != nil {
				return fmt.Errorf("stored %s document is not JSON: %w", category, err)
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		filter    audit.Filter
		last      string
		until     string
		operation string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List audited device changes",
		Long: `List the device changes recorded in the audit log.

Examples:
  newtgrade history -H leaf1
  newtgrade history --last 24h --failures
  newtgrade history -H leaf1 --operation port.disable --interface ethernet1/5
  newtgrade history --until 2024-05-01T12:00:00Z --limit 20 --offset 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Device = app.hostname
			if last != "" {
				d, err := time.ParseDuration(last)
				if err != nil {
					return fmt.Errorf("invalid duration: %s", last)
				}
				filter.StartTime = time.Now().Add(-d)
			}
			if until != "" {
				t, err := time.Parse(time.RFC3339, until)
				if err != nil {
					return fmt.Errorf("invalid --until time %q: want RFC 3339", until)
				}
				filter.EndTime = t
			}
			if operation != "" {
				op, err := audit.ParseOperation(operation)
				if err != nil {
					return err
				}
				filter.Operation = op
			}

			logger := app.openAuditor()
			defer logger.Close()
			events, err := logger.Query(filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			w := cmd.OutOrStdout()
			if app.jsonOutput {
				return json.NewEncoder(w).Encode(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(w, "No audit events found")
				return nil
			}

			t := cli.NewTableWriter(w, "TIMESTAMP", "USER", "DEVICE", "PHASE", "OPERATION", "INTERFACE", "STATUS")
			for _, e := range events {
				status := cli.Green("ok")
				if !e.Success {
					status = cli.Red(e.Outcome)
				}
				t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Device, e.Phase, string(e.Operation), e.Interface, status)
			}
			t.Flush()
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.User, "user", "", "Only events by this user")
	f.StringVar(&filter.Phase, "phase", "", "Only events from this phase")
	f.StringVar(&operation, "operation", "", "Only this operation (maintenance.enter, maintenance.exit, port.disable, port.enable)")
	f.StringVar(&filter.Interface, "interface", "", "Only changes to this interface")
	f.StringVar(&last, "last", "", "Only events within this duration (e.g. 24h)")
	f.StringVar(&until, "until", "", "Only events at or before this RFC 3339 time")
	f.IntVar(&filter.Limit, "limit", 0, "Maximum number of events")
	f.IntVar(&filter.Offset, "offset", 0, "Skip this many matching events")
	f.BoolVar(&filter.SuccessOnly, "successes", false, "Only applied changes")
	f.BoolVar(&filter.FailureOnly, "failures", false, "Only failed changes")
	cmd.MarkFlagsMutuallyExclusive("successes", "failures")
	return cmd
}
