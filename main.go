// Copyright (c) 2023 The KBase Project and its Contributors
// Copyright (c) 2023 Cohere Consulting, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bge-barcoding/bgecrate/config"
	"github.com/bge-barcoding/bgecrate/crate"
	"github.com/bge-barcoding/bgecrate/databases"
	"github.com/bge-barcoding/bgecrate/databases/biosamples"
	"github.com/bge-barcoding/bgecrate/databases/bold"
	"github.com/bge-barcoding/bgecrate/databases/copo"
	"github.com/bge-barcoding/bgecrate/databases/ena"
	"github.com/bge-barcoding/bgecrate/pipeline"
)

var (
	debug    bool
	manifest bool
	output   string
	severity string
)

var rootCmd = &cobra.Command{
	Use:   "bgecrate",
	Short: "Assembles RO-Crates describing biodiversity genomics data",
	Long: `bgecrate assembles RO-Crate metadata for genomes and DNA barcodes from
ENA, BOLD, BioSamples, and COPO records, or for the outputs of a barcode
validation run, and validates it against the RO-Crate 1.1 profile.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			enableDebugLogging()
		}
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <config_file>",
	Short: "Assembles, writes, and validates the crate described by a config file",
	Args:  cobra.ExactArgs(1),
	RunE:  build,
}

var validateCmd = &cobra.Command{
	Use:   "validate <crate_dir>",
	Short: "Validates the crate in the given directory",
	Args:  cobra.ExactArgs(1),
	RunE:  validate,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	buildCmd.Flags().BoolVar(&manifest, "manifest", false,
		"write a data package listing downloadable files with the crate")
	buildCmd.Flags().StringVarP(&output, "output", "o", "",
		"directory to which the crate is written (overrides the config file)")
	validateCmd.Flags().StringVar(&severity, "severity", crate.Required.String(),
		"least severe issue to report (REQUIRED, RECOMMENDED, or OPTIONAL)")
	rootCmd.AddCommand(buildCmd, validateCmd)
}

func enableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

// registers the upstream databases from which crates are assembled
func registerDatabases() error {
	for name, create := range map[string]func() (databases.Database, error){
		databases.ENA:        ena.NewDatabase,
		databases.BOLD:       bold.NewDatabase,
		databases.BioSamples: biosamples.NewDatabase,
		databases.COPO:       copo.NewDatabase,
	} {
		if err := databases.RegisterDatabase(name, create); err != nil {
			return err
		}
	}
	return nil
}

func build(cmd *cobra.Command, args []string) error {
	configFile := args[0]

	// Read the configuration file.
	slog.Info(fmt.Sprintf("Reading configuration from '%s'...", configFile))
	b, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Couldn't read configuration data: %w", err)
	}
	if err := config.Init(b); err != nil {
		return fmt.Errorf("Couldn't initialize the configuration: %w", err)
	}
	if config.Service.Debug && !debug {
		enableDebugLogging()
	}
	if err := registerDatabases(); err != nil {
		return err
	}

	if config.Service.Cassette != "" {
		return databases.WithCassette(config.Service.Cassette, config.Service.Record, func() error {
			return assemble(cmd)
		})
	}
	return assemble(cmd)
}

// assembles, writes and validates the configured crate
func assemble(cmd *cobra.Command) error {
	spec, err := pipeline.FromConfig()
	if err != nil {
		return err
	}
	if manifest {
		spec.Manifest = true
	}
	if output != "" {
		spec.Output = output
	}
	if spec.Output == "" {
		return fmt.Errorf("No output directory was given")
	}

	result, err := pipeline.Run(cmd.Context(), spec)
	if err != nil {
		return err
	}
	if result.ManifestFile != "" {
		slog.Info(fmt.Sprintf("Wrote manifest to %s", result.ManifestFile))
	}
	if len(result.Issues) > 0 {
		return &pipeline.ValidationError{Issues: len(result.Issues)}
	}
	slog.Info("The crate is valid")
	return nil
}

func validate(cmd *cobra.Command, args []string) error {
	dir := args[0]
	s, err := crate.ParseSeverity(severity)
	if err != nil {
		return err
	}
	doc, err := crate.Read(dir)
	if err != nil {
		return err
	}
	issues, err := crate.Validate(doc, crate.Settings{
		Profile:  crate.DefaultProfile,
		Severity: s,
		Loader:   crate.NewDocumentLoader(databases.NewHttpClient(config.RequestTimeout())),
	})
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Fprintln(cmd.OutOrStdout(), issue.String())
	}
	if len(issues) > 0 {
		return &pipeline.ValidationError{Issues: len(issues)}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid %s crate\n", dir, crate.DefaultProfile)
	return nil
}

func main() {
	// Intercept the SIGINT, SIGHUP, SIGTERM, and SIGQUIT signals, abandoning
	// any outstanding upstream requests if they are encountered.
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
