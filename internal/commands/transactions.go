package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/money"
	"github.com/fpachecos/dashboard-faturas/internal/report"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

func newTransactionsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and edit stored transactions",
	}
	cmd.AddCommand(
		newTransactionsListCommand(g),
		newTransactionsUpdateCommand(g),
		newTransactionsDeleteCommand(g),
	)
	return cmd
}

// filterFlags binds report.Filter fields to command flags.
type filterFlags struct {
	category string
	from     string
	to       string
	min      float64
	max      float64
	month    string
	typ      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "category id")
	cmd.Flags().StringVar(&f.from, "from", "", "earliest charge date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "latest charge date, YYYY-MM-DD")
	cmd.Flags().Float64Var(&f.min, "min", 0, "minimum value")
	cmd.Flags().Float64Var(&f.max, "max", 0, "maximum value")
	cmd.Flags().StringVar(&f.month, "month", "", "invoice month, YYYY-MM")
	cmd.Flags().StringVar(&f.typ, "type", "", "Fixo or Variável")
}

func (f *filterFlags) filter(cmd *cobra.Command) (report.Filter, error) {
	out := report.Filter{
		Category:     f.category,
		DateFrom:     f.from,
		DateTo:       f.to,
		InvoiceMonth: f.month,
	}
	if cmd.Flags().Changed("min") {
		out.ValueMin = model.Ptr(f.min)
	}
	if cmd.Flags().Changed("max") {
		out.ValueMax = model.Ptr(f.max)
	}
	if f.typ != "" {
		t := model.ParseTransactionType(f.typ)
		if t == nil {
			return out, fmt.Errorf("type must be %s or %s", model.TypeFixed, model.TypeVariable)
		}
		out.Type = *t
	}
	return out, nil
}

func newTransactionsListCommand(g *globalFlags) *cobra.Command {
	var ff filterFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
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

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), txns)
			}
			cats, err := p.backend.ListCategories(ctx, p.user)
			if err != nil {
				return err
			}
			return writeTransactions(cmd.OutOrStdout(), txns, categories.NewService(cats))
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTransactionsUpdateCommand(g *globalFlags) *cobra.Command {
	var (
		category      string
		typ           string
		date          string
		establishment string
		cardholder    string
		value         float64
		installment   string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u store.Update
			flags := cmd.Flags()
			if flags.Changed("category") {
				u.Category = &category
			}
			if flags.Changed("type") {
				u.Type = model.ParseTransactionType(typ)
				if u.Type == nil {
					return fmt.Errorf("type must be %s or %s", model.TypeFixed, model.TypeVariable)
				}
			}
			if flags.Changed("date") {
				u.Date = &date
			}
			if flags.Changed("establishment") {
				u.Establishment = &establishment
			}
			if flags.Changed("cardholder") {
				u.Cardholder = &cardholder
			}
			if flags.Changed("value") {
				u.Value = &value
			}
			if flags.Changed("installment") {
				u.Installment = &installment
			}

			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			txn, err := p.backend.UpdateTransaction(cmd.Context(), p.user, args[0], u)
			if err != nil {
				return fmt.Errorf("updating %s: %w", args[0], err)
			}
			if _, err := p.commit(cmd.Context(), "edit: "+txn.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", txn.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.Flags().StringVar(&typ, "type", "", "Fixo or Variável")
	cmd.Flags().StringVar(&date, "date", "", "charge date, DD/MM/YYYY")
	cmd.Flags().StringVar(&establishment, "establishment", "", "establishment")
	cmd.Flags().StringVar(&cardholder, "cardholder", "", "cardholder")
	cmd.Flags().Float64Var(&value, "value", 0, "value")
	cmd.Flags().StringVar(&installment, "installment", "", "installment, e.g. 2/3")
	return cmd
}

func newTransactionsDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.backend.DeleteTransaction(cmd.Context(), p.user, args[0]); err != nil {
				return fmt.Errorf("deleting %s: %w", args[0], err)
			}
			if _, err := p.commit(cmd.Context(), "delete: "+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func writeTransactions(w io.Writer, txns []model.Transaction, cats *categories.Service) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tESTABLISHMENT\tVALUE\tINSTALLMENT\tCATEGORY\tTYPE")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date, t.Establishment, money.FormatBRL(t.Value), t.Installment,
			cats.NameOf(t.CategoryID(), "-"), orDash(string(t.TypeOrEmpty())))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
