package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/scribe/internal/api"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/version"
)

// versionInfo is what `scribe version` prints, in the format chosen by -o.
type versionInfo struct {
	Release          string `json:"release" yaml:"release"`
	Commit           string `json:"commit,omitempty" yaml:"commit,omitempty"`
	CommitDate       string `json:"commit_date,omitempty" yaml:"commit_date,omitempty"`
	Go               string `json:"go" yaml:"go"`
	AnthropicVersion string `json:"anthropic_version" yaml:"anthropic_version"`
	DefaultModel     string `json:"default_model" yaml:"default_model"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Release:          version.GitRelease,
		Commit:           version.GitCommit,
		CommitDate:       version.GitCommitDate,
		Go:               version.GoInfo,
		AnthropicVersion: providers.AnthropicVersion,
		DefaultModel:     providers.AnthropicDefaultModel,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Prints the scribe build along with the Anthropic API version and model
it targets when the config does not override them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), currentVersion())
	},
}
