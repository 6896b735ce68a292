package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// pipelineBuilder creates the pipeline for a loaded configuration
type pipelineBuilder func(ctx context.Context, config *Config) (*PodcastPipeline, error)

// errReported marks failures the pipeline has already logged
type errReported struct{ error }

func (e errReported) Unwrap() error { return e.error }

func newRootCmd(build pipelineBuilder) *cobra.Command {
	var (
		configFile     string
		markdownOutput string
		logFile        string
		debugMode      bool
	)

	cmd := &cobra.Command{
		Use:   "podcast-writer <query> <output-filename>",
		Short: "Turn an encyclopedia article into a podcast episode",
		Long: `Looks up the query on Wikipedia, has a language model rewrite the article
as a spoken podcast script and synthesizes the script to an audio file.
Both the script (.md) and the audio are saved in the configured output directory.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(LogSettings{}, debugMode); err != nil {
				return err
			}
			defer syncLogger()

			config, err := LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logSettings := config.Settings.Log
			if logFile != "" {
				logSettings.File = logFile
			}
			if err := initLogger(logSettings, debugMode); err != nil {
				return err
			}

			pipeline, err := build(cmd.Context(), config)
			if err != nil {
				return fmt.Errorf("creating pipeline: %w", err)
			}

			_, err = pipeline.Run(cmd.Context(), RunRequest{
				Query:          args[0],
				OutputFilename: args[1],
				MarkdownOutput: markdownOutput,
			})
			if err != nil {
				return errReported{err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&markdownOutput, "markdown-output", "", "Path for the generated script (default: <output-filename>.md; relative paths are placed in the output directory)")
	cmd.Flags().StringVar(&configFile, "config", DefaultConfigPath(), "Path to settings file")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	return cmd
}

func main() {
	// Credentials may live in a local .env file
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(BuildPipeline).ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process status, reporting errors the
// pipeline has not logged itself
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var reported errReported
	if !errors.As(err, &reported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return 1
}
