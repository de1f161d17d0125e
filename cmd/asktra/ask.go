package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asktra-labs/asktra/internal/pipeline"
)

var (
	askSources []string
	askPrior   string
	askStream  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a causal question about the system",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		req := pipeline.AskRequest{
			Query:          strings.Join(args, " "),
			IncludeSources: askSources,
			PriorContext:   askPrior,
		}

		if askStream {
			return env.Pipeline.AskStream(cmd.Context(), req, func(e pipeline.Event) {
				switch e.Type {
				case pipeline.EventStep:
					fmt.Fprintln(cmd.OutOrStdout(), e.Message)
				case pipeline.EventResult:
					printResult(cmd, e.Result)
				case pipeline.EventError:
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", e.Message)
				}
			})
		}

		result, err := env.Pipeline.Ask(cmd.Context(), req)
		if err != nil {
			return err
		}
		printResult(cmd, result)
		return nil
	},
}

func printResult(cmd *cobra.Command, result any) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
}

func init() {
	askCmd.Flags().StringSliceVar(&askSources, "sources", nil, "sources to consult (slack, git, jira, docs, releases; default all)")
	askCmd.Flags().StringVar(&askPrior, "prior", "", "prior session context to build on")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print progress while reasoning")
	rootCmd.AddCommand(askCmd)
}
