package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor"
)

var flagSearchK int

var searchCmd = &cobra.Command{
	Use:   "search <vector>",
	Short: "Find the nearest neighbors of a query vector",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&flagSearchK, "k", "k", 5, "Number of results to show")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := parseVector(args[0])
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

	results, err := db.Search(cmd.Context(), query, flagSearchK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDISTANCE\tLABEL\tDESCRIPTION")
	for _, r := range results {
		desc := ""
		if r.Metadata.Description != nil {
			desc = *r.Metadata.Description
		}
		fmt.Fprintf(w, "%d\t%g\t%s\t%s\n", r.ID, r.Distance, r.Metadata.Label, desc)
	}
	return w.Flush()
}
