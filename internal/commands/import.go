package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/config"
	"github.com/fpachecos/dashboard-faturas/internal/importer"
	"github.com/fpachecos/dashboard-faturas/internal/ingest"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	var format string
	var dir string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import statement CSV files",
		Long: `Import statement CSV files, replacing the stored transactions of each
file's invoice month. The month comes from a "FaturaYYYY-MM-DD" fragment in the
file name, or today when there is none.

Without arguments, every CSV in the import directory is imported and then
moved to its processed/ subdirectory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			if len(args) > 0 {
				return runImportFiles(cmd, p, format, args)
			}
			if dir == "" {
				dir = config.Resolve(p.root, p.cfg.Import.Dir)
			}
			return runImportDir(cmd, p, format, dir)
		},
	}

	cmd.Flags().StringVar(&format, "format", importer.DefaultFormat, "statement format")
	cmd.Flags().StringVar(&dir, "dir", "", "import directory (default from config)")

	return cmd
}

func runImportFiles(cmd *cobra.Command, p *project, format string, paths []string) error {
	svc, err := p.ingestService(format)
	if err != nil {
		return err
	}

	var names []string
	var importErr error
	for _, path := range paths {
		if importErr = importFile(cmd, p, svc, path); importErr != nil {
			break
		}
		names = append(names, filepath.Base(path))
	}
	return errors.Join(importErr, commitImport(cmd, p, names))
}

func runImportDir(cmd *cobra.Command, p *project, format, dir string) error {
	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", dir)
		return nil
	}

	svc, err := p.ingestService(format)
	if err != nil {
		return err
	}

	var names []string
	var importErr error
	for _, f := range files {
		if importErr = importFile(cmd, p, svc, f.Path); importErr != nil {
			break
		}
		if importErr = importer.MarkProcessed(dir, f.Name); importErr != nil {
			break
		}
		names = append(names, f.Name)
	}
	// Files imported before a failure stay imported, so they are committed.
	return errors.Join(importErr, commitImport(cmd, p, names))
}

func importFile(cmd *cobra.Command, p *project, svc *ingest.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := svc.Import(cmd.Context(), ingest.Request{
		UserID:   p.user,
		Filename: filepath.Base(path),
		Content:  f,
	})
	if err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions from %s (invoice %s)\n",
		res.Count, filepath.Base(path), res.InvoiceDate)
	return nil
}

func commitImport(cmd *cobra.Command, p *project, names []string) error {
	if len(names) == 0 {
		return nil
	}
	hash, err := p.commit(cmd.Context(), "import: "+strings.Join(names, ", "))
	if err != nil {
		return err
	}
	if hash != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Committed %s\n", hash)
	}
	return nil
}
