package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/backend"
	"github.com/fpachecos/dashboard-faturas/internal/classifier"
	"github.com/fpachecos/dashboard-faturas/internal/config"
	"github.com/fpachecos/dashboard-faturas/internal/gitops"
	"github.com/fpachecos/dashboard-faturas/internal/importer"
	"github.com/fpachecos/dashboard-faturas/internal/importlog"
	"github.com/fpachecos/dashboard-faturas/internal/ingest"
	"github.com/fpachecos/dashboard-faturas/internal/logger"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

const (
	rulesDir  = "rules"
	rulesFile = "classification-rules.yaml"
	dotenv    = ".env"
)

// project is an opened faturas project directory.
type project struct {
	root    string
	user    string
	cfg     *config.Config
	log     zerolog.Logger
	backend store.Backend
}

func openProject(cmd *cobra.Command, g *globalFlags) (*project, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a faturas project (run faturas init): %w", root, err)
		}
		return nil, err
	}
	if err := cfg.ApplyEnv(filepath.Join(root, dotenv)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("backend", cfg.Storage.Backend).Logger()
	cmd.SetContext(logger.WithContext(cmd.Context(), log))

	b, err := backend.Open(cmd.Context(), cfg.Storage, root)
	if err != nil {
		return nil, err
	}

	return &project{root: root, user: g.user, cfg: cfg, log: log, backend: b}, nil
}

func (p *project) Close() error {
	return p.backend.Close()
}

// ingestService builds an import service for the named statement format,
// using the project's rules file when one exists.
func (p *project) ingestService(format string) (*ingest.Service, error) {
	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return nil, fmt.Errorf("unknown statement format %q", format)
	}

	c := classifier.Default()
	path := filepath.Join(p.root, rulesDir, rulesFile)
	if _, err := os.Stat(path); err == nil {
		rs, err := classifier.LoadRuleSet(path)
		if err != nil {
			return nil, err
		}
		c = classifier.New(rs)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking rules: %w", err)
	}

	return ingest.NewService(p.backend,
		ingest.WithParser(parser),
		ingest.WithClassifier(c),
		ingest.WithAuditor(&importlog.Log{Root: p.root}),
	), nil
}

// commit records the project directory in git when auto-commit is on and
// the project is a repository. Returns the short hash, or "" if nothing was committed.
func (p *project) commit(ctx context.Context, message string) (string, error) {
	if !p.cfg.Git.AutoCommit || !gitops.IsRepo(p.root) {
		return "", nil
	}
	hash, err := gitops.CommitAll(ctx, p.root, message, p.cfg.Git.AuthorName, p.cfg.Git.AuthorEmail)
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash, nil
}
