package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/asktra-labs/asktra/internal/store"
)

var findingsLimit int

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Browse the findings archive",
}

var findingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Archive == nil {
			return eris.New("findings archive is disabled (store.driver = none)")
		}

		findings, err := env.Archive.ListFindings(cmd.Context(), store.ListFilter{Limit: findingsLimit})
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", f.ID, f.CreatedAt.Format("2006-01-02 15:04"), f.Query)
		}
		return nil
	},
}

var findingsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one archived finding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Archive == nil {
			return eris.New("findings archive is disabled (store.driver = none)")
		}

		finding, err := env.Archive.GetFinding(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(finding, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	findingsListCmd.Flags().IntVar(&findingsLimit, "limit", 20, "maximum findings to list")
	findingsCmd.AddCommand(findingsListCmd, findingsGetCmd)
	rootCmd.AddCommand(findingsCmd)
}
