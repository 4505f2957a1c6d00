package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"artlens/config"
	"artlens/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect and manage the media bucket",
	Long:  `List stored artworks and narrations, show bucket statistics, or delete everything under a prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if !cfg.StorageEnabled() {
			return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be set")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MinIO: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewObjectStore(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if minioDelete {
			if minioPrefix == "" {
				return errors.New("--delete requires --prefix")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", minioPrefix, err)
			}
			fmt.Fprintf(out, "Deleted %d objects under %s\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.List(ctx, minioPrefix)
		if err != nil {
			return err
		}

		switch {
		case minioStats:
			fmt.Fprintf(out, "Objects: %d\nTotal size: %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Fprintf(out, "Last modified: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
			}
			kinds := make([]string, 0, len(stats.ByKind))
			for k := range stats.ByKind {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Fprintf(out, "  %-10s %d\n", k, stats.ByKind[k])
			}
		case minioRecursive:
			printTree(cmd, objects)
		default:
			for _, obj := range objects {
				fmt.Fprintf(out, "%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(out, "%d objects, %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		}
		return nil
	},
}

// printTree groups keys by directory.
func printTree(cmd *cobra.Command, objects []storage.ObjectInfo) {
	out := cmd.OutOrStdout()
	dirs := make(map[string][]storage.ObjectInfo)
	for _, obj := range objects {
		dir := "/"
		if i := strings.LastIndex(obj.Key, "/"); i >= 0 {
			dir = obj.Key[:i+1]
		}
		dirs[dir] = append(dirs[dir], obj)
	}

	names := make([]string, 0, len(dirs))
	for d := range dirs {
		names = append(names, d)
	}
	sort.Strings(names)

	for _, d := range names {
		fmt.Fprintf(out, "%s (%d)\n", d, len(dirs[d]))
		for _, obj := range dirs[d] {
			fmt.Fprintf(out, "  %-50s %10s\n", strings.TrimPrefix(obj.Key, d), storage.FormatSize(obj.Size))
		}
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only objects under this prefix (required with --delete)")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "show bucket statistics")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "group objects by directory")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under --prefix")

	minioCmd.Example = `  # list everything
  artlens minio

  # narrations only
  artlens minio -p "narrations/"

  # bucket statistics
  artlens minio -s

  # one user's artworks, grouped by directory
  artlens minio -r -p "artworks/"

  # remove a user's artworks
  artlens minio -d -p "artworks/<user>/"`
}
