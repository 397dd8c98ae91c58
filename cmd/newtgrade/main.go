// Newtgrade - SR Linux upgrade validation tool
//
// Captures a device's operational state before a software upgrade, drains
// it for the upgrade window, and compares the state captured afterwards:
//
//	newtgrade -H leaf1 precheck     # snapshot, enter maintenance, shut access ports
//	newtgrade -H leaf1 postcheck    # snapshot again and diff against precheck
//	newtgrade -H leaf1 restore      # exit maintenance, re-enable saved ports
//
// Every mutation is gated by a confirmation prompt that accepts only "Y".
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtgrade/pkg/cli"
	"github.com/newtron-network/newtgrade/pkg/settings"
	"github.com/newtron-network/newtgrade/pkg/store"
	"github.com/newtron-network/newtgrade/pkg/util"
	"github.com/newtron-network/newtgrade/pkg/version"
)

// errDifferences maps to exit code 2. RunE handlers return it instead of
// calling os.Exit directly, so deferred cleanup runs.
var errDifferences = errors.New("differences found")

// App holds the global flags and the state resolved from them.
type App struct {
	hostname    string
	target      string
	port        int
	username    string
	password    string
	insecure    bool
	skipVerify  bool
	sshUser     string
	sshPass     string
	inventory   string
	storeKind   string
	storeDir    string
	redisAddr   string
	settle      string
	parallelism int
	group       string
	debug       bool
	logFormat   string
	verbose     bool
	noColor     bool
	jsonOutput  bool

	settings  *settings.Settings
	debugFile *os.File
}

var app = &App{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if app.debugFile != nil {
		app.debugFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for differences the
// operator must review, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, errDifferences) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newtgrade",
		Short: "SR Linux upgrade validation",
		Long: `Newtgrade validates an SR Linux switch across a software upgrade.

Lifecycle:
  newtgrade -H <host> precheck       # capture state, drain the device
  (upgrade the device)
  newtgrade -H <host> postcheck      # capture state, report differences
  newtgrade -H <host> restore        # return the device to service

Inspection:
  newtgrade -H <host> diff           # re-render the stored comparison
  newtgrade -H <host> show <phase> <category>
  newtgrade history                  # audit trail of device changes`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&app.hostname, "hostname", "H", "", "Device hostname (store key and TLS server name)")
	f.StringVarP(&app.target, "target", "t", "", "Management address (defaults to inventory or hostname)")
	f.IntVar(&app.port, "port", 0, "gNMI port (default 57400)")
	f.StringVarP(&app.username, "username", "u", "", "Device username")
	f.StringVarP(&app.password, "password", "p", "", "Device password (else NEWTGRADE_PASSWORD or prompt)")
	f.BoolVar(&app.insecure, "insecure", false, "Plaintext gRPC")
	f.BoolVar(&app.skipVerify, "skip-verify", false, "Skip TLS certificate verification")
	f.StringVar(&app.sshUser, "ssh-user", "", "Tunnel gNMI over SSH as this user")
	f.StringVar(&app.sshPass, "ssh-pass", "", "SSH tunnel password")
	f.StringVar(&app.inventory, "inventory", "", "Device inventory YAML")
	f.StringVar(&app.storeKind, "store", "", "Snapshot store backend: file or redis")
	f.StringVar(&app.storeDir, "store-dir", "", "File store root (also holds the audit log)")
	f.StringVar(&app.redisAddr, "redis-addr", "", "Redis address for the redis store")
	f.StringVar(&app.settle, "settle", "", "Wait between port health samples (default 10s)")
	f.IntVar(&app.parallelism, "parallelism", 0, "Concurrent telemetry queries")
	f.StringVar(&app.group, "maintenance-group", "", "BGP maintenance group name")
	f.BoolVar(&app.debug, "debug", false, "Write a debug log in the working directory")
	f.StringVar(&app.logFormat, "log-format", "text", "Log format: text or json")
	f.BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	f.BoolVar(&app.noColor, "no-color", false, "Disable colored output")
	f.BoolVar(&app.jsonOutput, "json", false, "JSON output")

	rootCmd.AddCommand(
		newPrecheckCmd(),
		newPostcheckCmd(),
		newRestoreCmd(),
		newDiffCmd(),
		newShowCmd(),
		newHistoryCmd(),
		newSettingsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			},
		},
	)
	return rootCmd
}

// setup loads settings and configures logging. Settings never fail a run.
func (a *App) setup(cmd *cobra.Command) error {
	s, err := settings.Load()
	if err != nil {
		util.Warnf("Could not load settings: %v", err)
		s = &settings.Settings{}
	}
	a.settings = s

	if a.noColor {
		cli.SetColor(false)
	}

	// Quiet by default, verbose on -v
	if a.verbose {
		util.SetLogLevel("debug")
	} else {
		util.SetLogLevel("warn")
	}
	switch a.logFormat {
	case "json":
		util.SetJSONFormat()
	case "text", "":
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", a.logFormat)
	}
	if a.debug {
		f, err := util.EnableDebugFile("")
		if err != nil {
			return err
		}
		a.debugFile = f
		fmt.Fprintf(cmd.ErrOrStderr(), "Debug log: %s\n", f.Name())
	}
	return nil
}

// requireHost returns the hostname or a usage error.
func (a *App) requireHost() (string, error) {
	if a.hostname == "" {
		return "", fmt.Errorf("device hostname is required: use -H <hostname>")
	}
	if err := store.ValidateHost(a.hostname); err != nil {
		return "", err
	}
	return a.hostname, nil
}
