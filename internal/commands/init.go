package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/classifier"
	"github.com/fpachecos/dashboard-faturas/internal/config"
	"github.com/fpachecos/dashboard-faturas/internal/gitops"
	"github.com/fpachecos/dashboard-faturas/internal/importer"
)

func newInitCommand() *cobra.Command {
	var backendName string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new faturas project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, backendName, useGit)
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", config.BackendFile, "storage backend: file, postgres or supabase")
	cmd.Flags().BoolVar(&useGit, "git", false, "initialize a git repository and commit after every import")

	return cmd
}

func runInit(cmd *cobra.Command, dir, backendName string, useGit bool) error {
	cfg := config.Default()
	cfg.Storage.Backend = backendName
	cfg.Git.AutoCommit = useGit
	switch backendName {
	case config.BackendFile, config.BackendPostgres, config.BackendSupabase:
	default:
		return fmt.Errorf("unknown storage backend %q", backendName)
	}

	dirs := []string{
		cfg.Storage.DataDir,
		rulesDir,
		"logs",
		cfg.Import.Dir,
		filepath.Join(cfg.Import.Dir, importer.ProcessedDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := classifier.SaveRuleSet(filepath.Join(dir, rulesDir, rulesFile), classifier.DefaultRuleSet()); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	// Secrets stay out of version control.
	gitignore := dotenv + "\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Import.Dir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	out := cmd.OutOrStdout()
	if !useGit {
		fmt.Fprintf(out, "Initialized faturas project at %s\n", dir)
		return nil
	}

	if err := gitops.Init(cmd.Context(), dir); err != nil {
		return err
	}
	hash, err := gitops.CommitAll(cmd.Context(), dir, "init: Initialize faturas project", cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized faturas project at %s (%s)\n", dir, hash)
	return nil
}
