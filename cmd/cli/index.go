package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/gitutil"
	"github.com/codehawk/codehawk/internal/wire"
)

var indexRepoName string

var indexCmd = &cobra.Command{
	Use:   "index [path-or-clone-url]",
	Short: "Index a repository into the vector store",
	Long: `Index a repository into the vector store so reviews can retrieve
codebase context. The argument is either a local worktree path or an
HTTPS clone URL; clone URLs are fetched into a temporary directory.

Examples:
  codehawk index ~/src/widgets --repo acme/widgets
  codehawk index https://github.com/acme/widgets.git --repo acme/widgets`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	indexCmd.Flags().StringVar(&indexRepoName, "repo", "", "Repository full name (owner/name) the index is stored under")
	_ = indexCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	target := args[0]

	if _, _, err := core.SplitFullName(indexRepoName); err != nil {
		return fmt.Errorf("invalid --repo value: %w", err)
	}

	toolkit, cleanup, err := wire.InitializeToolkit(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	titleColor.Println("CodeHawk - Repository Indexing")
	dimColor.Printf("   Target: %s\n", target)
	dimColor.Printf("   Repository: %s\n\n", indexRepoName)

	root := target
	if info, statErr := os.Stat(target); statErr != nil || !info.IsDir() {
		fmt.Println("Cloning repository...")
		cloner := gitutil.NewCloner(toolkit.Logger)
		path, cloneCleanup, cloneErr := cloner.CloneTemp(ctx, target, resolveToken())
		if cloneErr != nil {
			return fmt.Errorf("failed to clone %s: %w", target, cloneErr)
		}
		defer cloneCleanup()
		root = path
	}

	fmt.Println("Loading files...")
	loaded, err := gitutil.LoadFiles(root)
	if err != nil {
		return fmt.Errorf("failed to load repository files: %w", err)
	}

	files := make([]core.RepoFile, 0, len(loaded))
	for _, f := range loaded {
		files = append(files, core.RepoFile{Path: f.Path, Content: f.Content})
	}

	repoCfg := core.DefaultRepoConfig()
	if raw, readErr := os.ReadFile(filepath.Join(root, config.RepoConfigFileName)); readErr == nil {
		parsed, parseErr := config.ParseRepoConfig(raw)
		if parseErr != nil {
			warnColor.Printf("Ignoring malformed %s: %v\n", config.RepoConfigFileName, parseErr)
		} else {
			repoCfg = parsed
		}
	}

	fmt.Printf("Indexing %d files...\n", len(files))
	start := time.Now()
	stats, err := toolkit.Indexer.IndexRepository(ctx, indexRepoName, files, repoCfg)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	successColor.Printf("Indexed %d files", stats.Indexed)
	dimColor.Printf(" (%d skipped, %d failed) in %s\n", stats.Skipped, stats.Failed, time.Since(start).Round(time.Millisecond))
	if stats.Failed > 0 {
		warnColor.Println("Some files failed to embed; see the logs for details.")
	}
	return nil
}
