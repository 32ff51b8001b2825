package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scribe/internal/api"
	"github.com/jackzampolin/scribe/internal/llmcall"
	"github.com/jackzampolin/scribe/internal/prompts/contacts"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/internal/server/endpoints"
	"github.com/jackzampolin/scribe/internal/telemetry"
	"github.com/jackzampolin/scribe/version"
)

var (
	extractModel    string
	extractStrict   bool
	extractNoRecord bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract contacts from a transcript without a server",
	Long: `Runs one contact extraction against the Anthropic API and prints the result.

The transcript is read from the given file, or from stdin when the argument
is "-" or omitted. Calls are recorded in the call store unless --no-record
is set or store.path is "disabled".

Examples:
  scribe extract call.txt
  cat call.txt | scribe extract -o json
  scribe extract call.txt --strict --model claude-3-5-sonnet-latest`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		transcript, err := endpoints.ReadTranscript(path)
		if err != nil {
			return err
		}

		h, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger := newLogger(cfg.LogLevel())

		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version.GitRelease, logger)
		if err != nil {
			return err
		}
		defer shutdown(context.WithoutCancel(ctx))

		ac := cfg.ToAnthropicConfig()
		ac.Logger = logger
		if extractModel != "" {
			ac.Model = extractModel
		}
		if extractStrict {
			ac.StrictValidation = true
		}

		if cfg.StoreEnabled() && !extractNoRecord {
			store, err := llmcall.Open(ctx, h.StorePath(cfg.Store.Path))
			if err != nil {
				return err
			}
			defer store.Close()
			recorder := llmcall.NewRecorder(store, logger)
			// Flush before the store closes.
			defer recorder.Close()
			ac.Observer = recorder
		}

		client, err := providers.NewAnthropicClient(ac)
		if err != nil {
			return err
		}

		result, err := contacts.Extract(ctx, client, transcript)
		if err != nil {
			return err
		}
		return api.Output(result)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractModel, "model", "", "Override anthropic.model")
	extractCmd.Flags().BoolVar(&extractStrict, "strict", false, "Validate nested contact fields with the full JSON Schema")
	extractCmd.Flags().BoolVar(&extractNoRecord, "no-record", false, "Do not record the call in the call store")

	rootCmd.AddCommand(extractCmd)
}
