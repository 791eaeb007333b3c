package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/money"
	"github.com/fpachecos/dashboard-faturas/internal/report"
)

func newSummaryCommand(g *globalFlags) *cobra.Command {
	var ff filterFlags
	var chartPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending by type, category and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter(cmd)
			if err != nil {
				return err
			}

			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := cmd.Context()
			txns, err := p.backend.ListTransactions(ctx, p.user)
			if err != nil {
				return err
			}
			txns, err = report.Apply(txns, f)
			if err != nil {
				return err
			}
			cats, err := p.backend.ListCategories(ctx, p.user)
			if err != nil {
				return err
			}
			s := report.Summarize(txns, cats)

			if chartPath != "" {
				if err := writeChart(s, f.InvoiceMonth, chartPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", chartPath)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			return writeSummary(cmd.OutOrStdout(), s)
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVar(&chartPath, "chart", "", "write a PNG bar chart of category totals to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeChart(s report.Summary, month, path string) error {
	title := "Gastos por categoria"
	if month != "" {
		title += " " + month
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart: %w", err)
	}
	if err := report.RenderCategoryChart(s, title, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func writeSummary(w io.Writer, s report.Summary) error {
	fmt.Fprintf(w, "Transactions: %d\n", s.Count)
	fmt.Fprintf(w, "Total:        %s\n", money.FormatBRL(s.Total))
	fmt.Fprintf(w, "Fixed:        %s (%.1f%%)\n", money.FormatBRL(s.Fixed.Total), s.Fixed.Percent)
	fmt.Fprintf(w, "Variable:     %s (%.1f%%)\n", money.FormatBRL(s.Variable.Total), s.Variable.Percent)

	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tCOUNT\tTOTAL\tAVERAGE")
		for _, c := range s.ByCategory {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Name, c.Count, money.FormatBRL(c.Total), money.FormatBRL(c.Average))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.ByMonth) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MONTH\tFIXED\tVARIABLE\tTOTAL")
		for _, m := range s.ByMonth {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Month, money.FormatBRL(m.Fixed), money.FormatBRL(m.Variable), money.FormatBRL(m.Total))
		}
		return tw.Flush()
	}
	return nil
}
