// Command shipdata transforms the ship and skill JSON tables served by the
// web front-end. Each subcommand runs one pipeline against the data
// directory; "all" runs them in order.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shipkr/shipdata/internal/config"
	"github.com/shipkr/shipdata/internal/logging"
	"github.com/shipkr/shipdata/internal/pipeline"
)

func main() {
	os.Exit(exitCode(os.Stderr, mainImpl()))
}

// exitCode reports err on w. An interrupted run is a failure too: the data
// directory may be only partly transformed.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(w, "shipdata: interrupted: %v\n", err)
		return 1
	default:
		fmt.Fprintf(w, "shipdata: %s: %v\n", pipeline.Kind(err), err)
		return 1
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

type app struct {
	cfg        *config.Config
	configPath string
	env        *pipeline.Env
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.DefaultConfig()}
	root := &cobra.Command{
		Use:               "shipdata",
		Short:             "Transform ship and skill game data for the web front-end",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.cfg.DataDir, "data-dir", a.cfg.DataDir, "directory holding the JSON tables")
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&a.cfg.Skills.LenientFields, "lenient-fields", a.cfg.Skills.LenientFields, "filter-skills: tolerate skills missing working fields")

	for _, name := range pipeline.Registered() {
		s, _ := pipeline.Lookup(name)
		root.AddCommand(&cobra.Command{
			Use:   s.Name,
			Short: s.Short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return pipeline.Run(cmd.Context(), s, a.env)
			},
		})
	}
	root.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Run every pipeline in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return pipeline.RunAll(cmd.Context(), a.env)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range pipeline.Registered() {
				s, _ := pipeline.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", s.Name, s.Short)
			}
			return nil
		},
	})
	return root
}

// setup loads the config file, lets explicit flags win over it and builds
// the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		fromFile, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		explicit := map[string]bool{}
		for _, name := range []string{"data-dir", "log-level", "lenient-fields"} {
			explicit[name] = cmd.Flags().Changed(name)
		}
		config.Merge(a.cfg, fromFile, explicit)
	}

	log, err := logging.New(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Debug("config", "data_dir", a.cfg.DataDir, "lenient_fields", a.cfg.Skills.LenientFields)
	a.env = &pipeline.Env{Config: a.cfg, Log: log, Out: cmd.OutOrStdout()}
	return nil
}
