package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/buildinfo"
)

// EnvUser names the user the CLI acts for when --user is not given.
const EnvUser = "FATURAS_USER"

const defaultUser = "local"

type globalFlags struct {
	repo string
	user string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "faturas",
		Short:   "Import and classify credit card statements",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	user := os.Getenv(EnvUser)
	if user == "" {
		user = defaultUser
	}
	rootCmd.PersistentFlags().StringVar(&g.repo, "repo", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&g.user, "user", user, "user id to act for (env "+EnvUser+")")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(g),
		newTransactionsCommand(g),
		newCategoriesCommand(g),
		newSummaryCommand(g),
		newServeCommand(g),
		newHistoryCommand(g),
	)

	return rootCmd
}
