package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd собирает дерево команд flowgraph.
func NewRootCmd(version string) *cobra.Command {
	var (
		apiURL     string
		jsonOutput bool
	)

	rootCmd := &cobra.Command{
		Use:           "flowgraph",
		Short:         "Run and manage flowgraph automation graphs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *Client { return NewClient(apiURL) }
	outputFn := func(cmd *cobra.Command) *Output {
		return NewOutputTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOutput)
	}

	rootCmd.AddCommand(
		NewRunCmd(outputFn),
		NewValidateCmd(outputFn),
		NewNodeTypesCmd(outputFn),
		NewWatchCmd(outputFn),
		NewExportCmd(),
		NewGraphCmd(clientFn, outputFn),
	)

	return rootCmd
}
