package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor"
)

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a vector and compact the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
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

	if err := db.Remove(cmd.Context(), id); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed id %d (%d live entries)\n", id, db.Count())
	return nil
}
