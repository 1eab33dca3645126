// Command vektor is a small CLI around a vektor database file, useful for
// inspecting and manipulating databases from scripts.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor/metric"
)

var (
	flagDB     string
	flagMetric string
)

var rootCmd = &cobra.Command{
	Use:          "vektor",
	Short:        "Embeddable vector database tool",
	SilenceUsage: true,
	Long: `vektor manages single-file vector databases: append-only logs of
vectors replayed into an in-memory HNSW index. Every command operates on the
file named by --db.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "vektor.vdb", "Path to the database file")
	rootCmd.PersistentFlags().StringVar(&flagMetric, "metric", "cosine", "Distance metric (cosine or euclidean)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func metricKind() (metric.Kind, error) {
	return metric.ParseKind(flagMetric)
}

// parseVector parses a comma-separated float list like "0.1,0.2,0.3".
func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
