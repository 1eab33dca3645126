package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show database statistics",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	kind, err := metricKind()
	if err != nil {
		return err
	}
	db, err := vektor.Open(flagDB, kind)
	if err != nil {
		return err
	}
	defer db.Close()

	stats := db.Stats()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "path\t%s\n", db.Path())
	fmt.Fprintf(w, "metric\t%s\n", stats.Metric)
	fmt.Fprintf(w, "dimension\t%d\n", stats.Dimension)
	fmt.Fprintf(w, "live entries\t%d\n", stats.Live)
	fmt.Fprintf(w, "index nodes\t%d\n", stats.Index.Nodes)
	fmt.Fprintf(w, "index max layer\t%d\n", stats.Index.MaxLayer)
	fmt.Fprintf(w, "index avg degree\t%.2f\n", stats.Index.AvgDegree)
	return w.Flush()
}
