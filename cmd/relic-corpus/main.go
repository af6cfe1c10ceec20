package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sha1n/relic-corpus/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "relic-corpus"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "RELIC corpus server",
		Long:    "Builds a C++ documentation corpus from extracted symbol fragments and serves it over MCP",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.Flags())

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the corpus once and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunBuild(cmd.Context(), cmd.Flags(), cmd.OutOrStdout())
		},
	}
	app.RegisterCorpusFlags(buildCmd.Flags())

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Build the corpus and write every symbol as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunDump(cmd.Context(), cmd.Flags(), cmd.OutOrStdout())
		},
	}
	app.RegisterCorpusFlags(dumpCmd.Flags())

	rootCmd.AddCommand(buildCmd, dumpCmd)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(context.Background())
}

func runWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}
