package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor"
)

var (
	flagAddLabel       string
	flagAddDescription string
)

var addCmd = &cobra.Command{
	Use:   "add <id> <vector>",
	Short: "Add a vector under a new id",
	Long:  `Add stores a vector, given as comma-separated floats, under a caller-chosen id.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&flagAddLabel, "label", "", "Label stored with the vector")
	addCmd.Flags().StringVar(&flagAddDescription, "description", "", "Optional description stored with the vector")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	meta := vektor.Metadata{Label: flagAddLabel}
	if cmd.Flags().Changed("description") {
		meta.Description = &flagAddDescription
	}

	if err := db.Add(cmd.Context(), id, vec, meta); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added id %d (%d dimensions)\n", id, len(vec))
	return nil
}
