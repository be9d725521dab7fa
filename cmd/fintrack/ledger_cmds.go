package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/ledger/csvfile"
	"fintrack/internal/report"
)

// txFlags are the transaction fields shared by add and edit.
type txFlags struct {
	date     string
	amount   string
	kind     string
	currency string
	use      string
	comment  string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Transaction date, DD-MM-YYYY (default today).")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "Signed amount; negative for expenses.")
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "income or expense; signs the amount's magnitude.")
	cmd.Flags().StringVarP(&f.currency, "currency", "c", "", "Currency code (default HOME_CURRENCY).")
	cmd.Flags().StringVarP(&f.use, "use", "u", "", "What the money was for or came from.")
	cmd.Flags().StringVar(&f.comment, "comment", "", "Free-text note.")
}

// apply overwrites the fields of t whose flags were given.
func (f *txFlags) apply(cmd *cobra.Command, t core.Transaction) (core.Transaction, error) {
	changed := cmd.Flags().Changed
	if changed("date") {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return t, err
		}
		t.Date = d
	}
	if changed("amount") {
		amt, err := core.ParseAmount(f.amount)
		if err != nil {
			return t, err
		}
		t.Amount = amt
	}
	if changed("kind") {
		k, err := core.ParseKind(f.kind)
		if err != nil {
			return t, err
		}
		t.Amount = k.Signed(t.Amount)
	}
	if changed("currency") {
		t.Currency = strings.ToUpper(strings.TrimSpace(f.currency))
	}
	if changed("use") {
		t.Use = f.use
	}
	if changed("comment") {
		t.Comment = f.comment
	}
	return t, nil
}

func parsePosition(arg string) (int, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos < 0 {
		return 0, fmt.Errorf("invalid position %q: must be a non-negative integer", arg)
	}
	return pos, nil
}

func newAddCmd(a *app) *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a transaction to the ledger",
		Example: `  fintrack add -a 2500 -u Salary
  fintrack add -a 12,40 -k expense -u Groceries -d 03-05-2025`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := f.apply(cmd, core.Transaction{Date: core.Today()})
			if err != nil {
				return err
			}
			entry, err := a.ledger.Add(cmd.Context(), t)
			if err != nil {
				return err
			}
			return a.emit(entry, report.Transactions("Added", []core.Entry{entry}))
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("use")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "edit <position>",
		Short: "Change fields of the transaction at a position",
		Long:  "Only the given flags change; the other fields keep their current values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			current, err := a.ledger.Get(cmd.Context(), pos)
			if err != nil {
				return err
			}
			t, err := f.apply(cmd, current.Transaction)
			if err != nil {
				return err
			}
			entry, err := a.ledger.Update(cmd.Context(), pos, t)
			if err != nil {
				return err
			}
			return a.emit(entry, report.Transactions("Updated", []core.Entry{entry}))
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <position>",
		Aliases: []string{"rm"},
		Short:   "Remove the transaction at a position",
		Long:    "Later transactions move up by one position.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			removed, err := a.ledger.Delete(cmd.Context(), pos)
			if err != nil {
				return err
			}
			return a.emit(removed, report.Transactions("Deleted", []core.Entry{removed}))
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show every transaction with its position",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showFiltered(cmd, "Ledger", core.Filter{})
		},
	}
}

func (a *app) showFiltered(cmd *cobra.Command, title string, f core.Filter) error {
	entries, err := a.ledger.Filter(cmd.Context(), f)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	return a.emit(entries, report.Transactions(title, entries))
}

func newFilterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show the transactions matching one criterion",
	}

	var minAmt, maxAmt string
	amount := &cobra.Command{
		Use:   "amount",
		Short: "Transactions whose magnitude lies between --min and --max",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f core.Filter
			var err error
			if f.MinAmount, err = parseBound(minAmt); err != nil {
				return fmt.Errorf("min: %w", err)
			}
			if f.MaxAmount, err = parseBound(maxAmt); err != nil {
				return fmt.Errorf("max: %w", err)
			}
			return a.showFiltered(cmd, "Amount filter", f)
		},
	}
	amount.Flags().StringVar(&minAmt, "min", "", "Lowest magnitude, inclusive.")
	amount.Flags().StringVar(&maxAmt, "max", "", "Highest magnitude, inclusive.")

	var from, to string
	date := &cobra.Command{
		Use:   "date",
		Short: "Transactions dated between --from and --to, inclusive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			return a.showFiltered(cmd, "Date filter", f)
		},
	}
	date.Flags().StringVar(&from, "from", "", "First day.")
	date.Flags().StringVar(&to, "to", "", "Last day.")

	kind := &cobra.Command{
		Use:       "type <income|expense>",
		Short:     "Only income or only expenses",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"income", "expense"},
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.showFiltered(cmd, "Type filter", core.Filter{Kind: k})
		},
	}

	use := &cobra.Command{
		Use:   "use <text>",
		Short: "Transactions whose use contains text, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showFiltered(cmd, "Use filter", core.Filter{Use: args[0]})
		},
	}

	currency := &cobra.Command{
		Use:   "currency <code>",
		Short: "Transactions in one currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showFiltered(cmd, "Currency filter", core.Filter{Currency: args[0]})
		},
	}

	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Transactions whose use or comment contains text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showFiltered(cmd, "Search", core.Filter{Search: args[0]})
		},
	}

	cmd.AddCommand(amount, date, kind, use, currency, search)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out, from, to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger, optionally limited to a date range, as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			entries, err := a.ledger.Filter(cmd.Context(), f)
			if err != nil {
				return err
			}
			txs := core.Transactions(entries)
			if out == "" || out == "-" {
				return csvfile.Encode(a.out, txs)
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export: %w", err)
			}
			if err := csvfile.Encode(file, txs); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transaction(s) to %s\n", len(txs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination file; stdout when empty.")
	cmd.Flags().StringVar(&from, "from", "", "First day.")
	cmd.Flags().StringVar(&to, "to", "", "Last day.")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Rewrite a Date,Amount,Category,Use ledger in the signed layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrated, rows, err := a.ledger.MigrateLegacy(cmd.Context())
			if err != nil {
				return err
			}
			result := map[string]any{"migrated": migrated, "rows": rows}
			msg := "Ledger already uses the current layout.\n"
			if migrated {
				msg = fmt.Sprintf("Migrated %d row(s) to the current layout.\n", rows)
			}
			return a.emit(result, msg)
		},
	}
}
