package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"finance/internal/core"
	"finance/internal/services"
)

const usage = `usage: financectl <command> [flags]

commands:
  add       record a transaction (--type, --amount, --description, --date)
  delete    remove a transaction by id
  list      print transactions, newest first
  summary   print income, expenses and savings
  export    write the CSV export (--output, default stdout)
  advice    ask for spending advice
`

// now is replaced in tests.
var now = time.Now

func run(ctx context.Context, svc *services.FinanceService, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "add":
		err = runAdd(ctx, svc, args[1:], stdout)
	case "delete", "rm":
		err = runDelete(ctx, svc, args[1:], stdout)
	case "list", "ls":
		err = runList(svc, args[1:], stdout)
	case "summary":
		err = runSummary(svc, stdout)
	case "export":
		err = runExport(svc, args[1:], stdout, stderr)
	case "advice":
		err = runAdvice(ctx, svc, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "financectl %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func runAdd(ctx context.Context, svc *services.FinanceService, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
	typ := fs.StringP("type", "t", "expense", "income or expense")
	amount := fs.StringP("amount", "a", "", "positive amount, dot or comma decimals")
	desc := fs.StringP("description", "d", "", "what the money was for")
	date := fs.String("date", "", "calendar date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := parseNewTransaction(*typ, *amount, *desc, *date)
	if err != nil {
		return err
	}
	tx, err := svc.AddTransaction(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "added %s\n", tx.ID)
	return nil
}

func parseNewTransaction(typ, amount, desc, date string) (services.NewTransaction, error) {
	t, err := core.ParseTransactionType(typ)
	if err != nil {
		return services.NewTransaction{}, err
	}
	a, err := core.ParseAmount(amount)
	if err != nil {
		return services.NewTransaction{}, err
	}
	var d core.CalendarDate
	if strings.TrimSpace(date) == "" {
		today := now().UTC()
		d = core.CalendarDate{Year: today.Year(), Month: int(today.Month()), Day: today.Day()}
	} else if d, err = core.ParseCalendarDate(date); err != nil {
		return services.NewTransaction{}, err
	}
	return services.NewTransaction{Type: t, Amount: a, Description: strings.TrimSpace(desc), Date: d}, nil
}

func runDelete(ctx context.Context, svc *services.FinanceService, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("expected exactly one transaction id")
	}
	if err := svc.DeleteTransaction(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted %s\n", args[0])
	return nil
}

func runList(svc *services.FinanceService, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the persisted JSON form")
	limit := fs.IntP("limit", "n", 0, "show at most n transactions (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	txs := svc.Transactions()
	if *limit > 0 && len(txs) > *limit {
		txs = txs[:*limit]
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(txs)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.ID, core.CalendarDateString(tx.Date), tx.Type, core.FormatAmount(tx.Amount), tx.Description)
	}
	return tw.Flush()
}

func runSummary(svc *services.FinanceService, stdout io.Writer) error {
	s := svc.Summary()
	d := svc.Distribution()
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatAmount(s.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\t\n", core.FormatAmount(s.TotalExpenses))
	fmt.Fprintf(tw, "Savings\t%s\t\n", core.FormatAmount(s.Savings))
	fmt.Fprintf(tw, "Spent\t%s%%\t\n", d.ExpenseShare.StringFixed(1))
	return tw.Flush()
}

func runExport(svc *services.FinanceService, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	output := fs.StringP("output", "o", "", `file to write, "." for the default name, empty for stdout`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	name, data, ok := svc.Export(now())
	if !ok {
		fmt.Fprintln(stderr, "no transactions to export")
		return nil
	}

	switch *output {
	case "":
		_, err := stdout.Write(append(data, '\n'))
		return err
	case ".":
		*output = name
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *output)
	return nil
}

func runAdvice(ctx context.Context, svc *services.FinanceService, stdout io.Writer) error {
	text, err := svc.RequestAdvice(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, text)
	return nil
}
