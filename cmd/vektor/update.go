package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor"
)

var (
	flagUpdateLabel       string
	flagUpdateDescription string
)

var updateCmd = &cobra.Command{
	Use:   "update <id> <vector>",
	Short: "Replace the vector and metadata stored under an id",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&flagUpdateLabel, "label", "", "Label stored with the vector")
	updateCmd.Flags().StringVar(&flagUpdateDescription, "description", "", "Optional description stored with the vector")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	vec, err := parseVector(args[1])
	if err != nil {
		return err
	}

	kind, err := metricKind()
	if err != nil {
		return err
	}
	db, err := vektor.Open(flagDB, kind)
	if err != nil {
		return err
	}
	defer db.Close()

	meta := vektor.Metadata{Label: flagUpdateLabel}
	if cmd.Flags().Changed("description") {
		meta.Description = &flagUpdateDescription
	}

	if err := db.Update(cmd.Context(), id, vec, meta); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "updated id %d\n", id)
	return nil
}
