package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Print the loaded dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ds, err := env.Data.Load(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)
}
