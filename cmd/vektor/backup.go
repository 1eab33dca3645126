package main

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vektor"
	"github.com/hupe1980/vektor/blobstore"
	"github.com/hupe1980/vektor/blobstore/s3"
)

var (
	flagBackupStore       string
	flagBackupCompression string
)

var backupCmd = &cobra.Command{
	Use:   "backup <name>",
	Short: "Write a compressed snapshot of the database",
	Long: `Backup snapshots the database file into a blob store under the given name.

The store is a local directory by default; an s3://bucket/prefix target
uploads the snapshot to S3 using the ambient AWS credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Materialize a snapshot as a new database file",
	Long:  `Restore recreates the database file at --db from a snapshot taken with backup. The target file must not exist.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	backupCmd.Flags().StringVar(&flagBackupStore, "store", "backups", "Snapshot store: a directory or s3://bucket/prefix")
	backupCmd.Flags().StringVar(&flagBackupCompression, "compression", "zstd", "Snapshot codec (none, zstd or lz4)")
	restoreCmd.Flags().StringVar(&flagBackupStore, "store", "backups", "Snapshot store: a directory or s3://bucket/prefix")
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

func parseCompression(s string) (vektor.Compression, error) {
	switch s {
	case "none":
		return vektor.CompressionNone, nil
	case "zstd":
		return vektor.CompressionZstd, nil
	case "lz4":
		return vektor.CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, zstd or lz4)", s)
	}
}

// openStore resolves a store target. Plain strings are local directories;
// s3://bucket/prefix targets use the default AWS credential chain.
func openStore(ctx context.Context, target string) (blobstore.Store, error) {
	if rest, ok := strings.CutPrefix(target, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("invalid store target %q: missing bucket", target)
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return s3.NewStore(awss3.NewFromConfig(cfg), bucket, prefix), nil
	}
	return blobstore.NewLocalStore(target)
}

func runBackup(cmd *cobra.Command, args []string) error {
	compression, err := parseCompression(flagBackupCompression)
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

	store, err := openStore(cmd.Context(), flagBackupStore)
	if err != nil {
		return err
	}

	if err := db.Backup(cmd.Context(), store, args[0], vektor.WithCompression(compression)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "backup %q written to %s\n", args[0], flagBackupStore)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context(), flagBackupStore)
	if err != nil {
		return err
	}

	if err := vektor.Restore(cmd.Context(), store, args[0], flagDB); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "restored %q to %s\n", args[0], flagDB)
	return nil
}
