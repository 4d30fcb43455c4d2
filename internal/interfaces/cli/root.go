// Package cli defines the molprop command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	output     string // "text" | "json"
}

// app carries initialized dependencies through the command tree.
type app struct {
	opts   rootOptions
	cfg    *config.Config
	logger logging.Logger
}

// NewRootCommand builds the molprop root with all subcommands attached.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "molprop",
		Short:   "Companion analyses for MolProp results tables",
		Long: "molprop consumes results tables produced by the MolProp toolkit and adds\n" +
			"the analyses the toolkit itself does not ship: 2-D projections, Pareto\n" +
			"ranking, matched molecular pairs, SAR summaries, compound lookup, and\n" +
			"bioisostere suggestions.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.configPath, "config", "c", "", "config file path (default: ./molprop.yaml)")
	pf.StringVar(&a.opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&a.opts.output, "output", "text", "output format (text, json)")

	cmd.AddCommand(
		newVisualizeCmd(a),
		newParetoCmd(a),
		newMMPCmd(a),
		newSARCmd(a),
		newLookupCmd(a),
		newBioisostereCmd(a),
		newPipelineCmd(a),
		newRunsCmd(a),
		newWebCmd(a),
	)
	return cmd
}

// init loads config and the logger once for the whole invocation.
func (a *app) init() error {
	var (
		cfg *config.Config
		err error
	)
	if a.opts.configPath != "" {
		cfg, err = config.Load(a.opts.configPath)
	} else if _, statErr := os.Stat("molprop.yaml"); statErr == nil {
		cfg, err = config.Load("molprop.yaml")
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(logging.Config{
		Level:       a.opts.logLevel,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// jsonOutput reports whether --output json was requested.
func (a *app) jsonOutput() bool { return a.opts.output == "json" }

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
