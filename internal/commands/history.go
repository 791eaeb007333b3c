package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/importlog"
)

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the import log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			entries, err := importlog.Read(p.root)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tUSER\tFILE\tINVOICE\tCOUNT\tSTATUS\tERROR")
			for _, e := range entries {
				if !all && e.UserID != p.user {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.UserID, e.File, e.InvoiceDate,
					e.Count, e.Status, orDash(e.Error))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "show imports of every user")
	return cmd
}
