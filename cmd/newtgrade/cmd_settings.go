package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtgrade/pkg/cli"
	"github.com/newtron-network/newtgrade/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.newtgrade/settings.json.

Settings provide defaults for global flags; flags always win.

Examples:
  newtgrade settings show
  newtgrade settings set username admin
  newtgrade settings set store_backend redis
  newtgrade settings set redis_addr 127.0.0.1:6379
  newtgrade settings clear`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					return fmt.Errorf("loading settings: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Settings file: %s\n\n", settings.DefaultSettingsPath())
				t := cli.NewTableWriter(w, "SETTING", "VALUE")
				for _, row := range settingRows(s) {
					value := row[1]
					if value == "" {
						value = "(not set)"
					}
					t.Row(row[0], value)
				}
				t.Flush()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <setting> <value>",
			Short: "Set a setting value",
			Long: "Set a persistent setting value.\n\nAvailable settings:\n  " +
				strings.Join(settings.Keys(), "\n  "),
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					s = &settings.Settings{}
				}
				if err := s.Set(args[0], args[1]); err != nil {
					return fmt.Errorf("%w (valid: %s)", err, strings.Join(settings.Keys(), ", "))
				}
				if err := s.Save(); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear all settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s := &settings.Settings{}
				if err := s.Save(); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings cleared")
				return nil
			},
		},
	)
	return cmd
}

// settingRows lists every setting with its current value, in key order.
func settingRows(s *settings.Settings) [][2]string {
	parallelism := ""
	if s.Parallelism > 0 {
		parallelism = strconv.Itoa(s.Parallelism)
	}
	skipVerify := ""
	if s.SkipVerify {
		skipVerify = "true"
	}
	values := map[string]string{
		"username":          s.Username,
		"store_backend":     s.StoreBackend,
		"store_dir":         s.StoreDir,
		"redis_addr":        s.RedisAddr,
		"inventory":         s.Inventory,
		"settle_interval":   s.SettleInterval,
		"parallelism":       parallelism,
		"maintenance_group": s.MaintenanceGroup,
		"skip_verify":       skipVerify,
	}
	rows := make([][2]string, 0, len(values))
	for _, k := range settings.Keys() {
		rows = append(rows, [2]string{k, values[k]})
	}
	return rows
}
