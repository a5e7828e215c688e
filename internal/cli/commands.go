package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"budgetflow/internal/config"
	"budgetflow/internal/core"
	"budgetflow/internal/log"
	"budgetflow/internal/services"
	"budgetflow/internal/source"
)

// App is what a budgetctl command runs against.
type App struct {
	Store     source.Store
	Publisher services.Publisher
	Logger    *log.Logger
	closers   []func() error
}

// Close releases the store and broker connection.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Opener builds the App for one command invocation.
type Opener func(ctx context.Context) (*App, error)

// DefaultOpener loads configuration from the environment, opens the
// configured store and, when AMQP_URL is set, a publisher.
func DefaultOpener(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := SetupLogger(cfg.LogLevel, os.Stderr).WithComponent(log.ComponentCLI)
	store, err := OpenStore(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Store: store, Logger: logger}
	if client := ConnectAMQP(logger, cfg); client != nil {
		app.Publisher = client
		app.closers = append(app.closers, client.Close)
	}
	app.closers = append(app.closers, store.Close)
	return app, nil
}

type runFunc func(ctx context.Context, app *App, out io.Writer, args []string) error

// withApp opens the App around a command body and closes it afterwards.
func withApp(open Opener, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := open(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil {
				app.Logger.Warn("Failed to close resources", log.FieldError, cerr)
			}
		}()
		return fn(ctx, app, cmd.OutOrStdout(), args)
	}
}

// NewRootCommand builds the budgetctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Manage budgets and inspect their execution",
		Long:          "Create periods, categories and budgets, and view how budgets expand into dated installments.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	periodCmd := &cobra.Command{Use: "period", Short: "Manage periods"}
	periodCmd.AddCommand(newPeriodAddCommand(open))

	categoryCmd := &cobra.Command{Use: "category", Short: "Manage categories"}
	categoryCmd.AddCommand(newCategoryAddCommand(open))

	budgetCmd := &cobra.Command{Use: "budget", Short: "Manage budgets"}
	budgetCmd.AddCommand(newBudgetAddCommand(open))

	root.AddCommand(
		periodCmd,
		categoryCmd,
		budgetCmd,
		newPeriodsCommand(open),
		newCategoriesCommand(open),
		newExpandCommand(open),
		newExecutionCommand(open),
	)
	return root
}

func newPeriodAddCommand(open Opener) *cobra.Command {
	var (
		id, name    string
		month, year int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a monthly period",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, _ []string) error {
			svc := services.NewBudgetService(app.Store, app.Publisher, app.Logger)
			p, err := svc.CreatePeriod(ctx, core.Period{ID: id, Name: name, Month: time.Month(month), Year: year})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created period %s (%s %d)\n", p.ID, p.Month, p.Year)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Period id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().IntVar(&month, "month", 0, "Calendar month, 1-12")
	cmd.Flags().IntVar(&year, "year", 0, "Year")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newCategoryAddCommand(open Opener) *cobra.Command {
	var (
		id, name, frequency         string
		defaultDay, stepDays, count int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a category with its recurrence policy",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, _ []string) error {
			c := core.Category{ID: id, Name: name, Frequency: frequency, StepDays: stepDays, Count: count}
			if defaultDay != 0 {
				day := defaultDay
				c.DefaultDay = &day
			}
			svc := services.NewBudgetService(app.Store, app.Publisher, app.Logger)
			created, err := svc.CreateCategory(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created category %s (%s)\n", created.ID, created.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Category id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&frequency, "frequency", "", "none, biweekly, triweekly or custom")
	cmd.Flags().IntVar(&defaultDay, "default-day", 0, "Preferred day of month, 1-31")
	cmd.Flags().IntVar(&stepDays, "step-days", 0, "Days between installments (custom)")
	cmd.Flags().IntVar(&count, "count", 0, "Number of installments (custom)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBudgetAddCommand(open Opener) *cobra.Command {
	var id, periodID, categoryID, amount, method, defaultDate string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a budget to a period",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, _ []string) error {
			total, err := core.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("--amount %q: %w", amount, err)
			}
			pm, err := core.ParsePaymentMethod(method)
			if err != nil {
				return fmt.Errorf("--method %q: %w", method, err)
			}
			b := core.Budget{ID: id, PeriodID: periodID, CategoryID: categoryID, Total: total, PaymentMethod: pm}
			if defaultDate != "" {
				if b.DefaultDate, err = core.ParseDate(defaultDate); err != nil {
					return fmt.Errorf("--default-date %q: %w", defaultDate, err)
				}
			}

			svc := services.NewBudgetService(app.Store, app.Publisher, app.Logger)
			created, err := svc.CreateBudget(ctx, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created budget %s (%s)\n", created.ID, FormatMoney(created.Total))
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Budget id (generated when empty)")
	cmd.Flags().StringVar(&periodID, "period", "", "Period id")
	cmd.Flags().StringVar(&categoryID, "category", "", "Category id")
	cmd.Flags().StringVar(&amount, "amount", "", "Expected amount, e.g. 100.01")
	cmd.Flags().StringVar(&method, "method", "", "cash, credit or debit")
	cmd.Flags().StringVar(&defaultDate, "default-date", "", "Default date, YYYY-MM-DD")
	for _, f := range []string{"period", "category", "amount", "method"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newPeriodsCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List periods, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, _ []string) error {
			periods, err := app.Store.ListPeriods(ctx)
			if err != nil {
				return err
			}
			if len(periods) == 0 {
				fmt.Fprintln(out, "\n  No periods found.")
				return nil
			}

			rows := make([][]string, 0, len(periods))
			for _, p := range periods {
				rows = append(rows, []string{p.ID, p.Name, fmt.Sprintf("%02d", int(p.Month)), fmt.Sprint(p.Year)})
			}
			fmt.Fprint(out, RenderTable(Table{
				Headers: []string{"ID", "Name", "Month", "Year"},
				Rows:    rows,
			}))
			return nil
		}),
	}
}

func newCategoriesCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and their recurrence",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, _ []string) error {
			cats, err := services.NewBudgetService(app.Store, nil, app.Logger).Categories(ctx)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Fprintln(out, "\n  No categories found.")
				return nil
			}

			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{c.ID, c.Name, recurrenceLabel(c), FormatDefaultDay(c.DefaultDay)})
			}
			fmt.Fprint(out, RenderTable(Table{
				Headers: []string{"ID", "Name", "Recurrence", "Day"},
				Rows:    rows,
			}))
			return nil
		}),
	}
}

func recurrenceLabel(c core.Category) string {
	r, err := core.ParseRecurrence(c.Frequency, c.StepDays, c.Count)
	if err != nil {
		return "invalid"
	}
	if r.Kind() == core.RecurrenceCustom {
		return fmt.Sprintf("custom %dx/%dd", r.Installments(), r.StepDays())
	}
	return string(r.Kind())
}

func newExpandCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <periodId>",
		Short: "Show every installment of a period",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, args []string) error {
			inst, err := services.NewExecutionService(app.Store, app.Logger).Installments(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, RenderTitle("INSTALLMENTS  "+inst.Period.Name))
			fmt.Fprintln(out)

			var total core.Money
			rows := make([][]string, 0, len(inst.Payments)+2)
			for _, p := range inst.Payments {
				total = total.Add(p.Amount)
				rows = append(rows, []string{p.Date.String(), p.CategoryName, string(p.PaymentMethod), FormatMoney(p.Amount)})
			}
			rows = append(rows, []string{"---"}, []string{"Total", "", "", FormatMoney(total)})

			fmt.Fprint(out, RenderTable(Table{
				Headers: []string{"Date", "Category", "Method", "Amount"},
				Rows:    rows,
			}))
			writeSkipped(out, inst.Skipped)
			return nil
		}),
	}
}

func newExecutionCommand(open Opener) *cobra.Command {
	var view string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "execution <periodId>",
		Short: "Show the bucketed execution report of a period",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(ctx context.Context, app *App, out io.Writer, args []string) error {
			mode, err := core.ParseViewMode(view)
			if err != nil {
				return err
			}
			report, err := services.NewExecutionService(app.Store, app.Logger).Execution(ctx, args[0], mode)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			renderReport(out, report)
			return nil
		}),
	}
	cmd.Flags().StringVar(&view, "view", string(core.ViewDaily), "daily or weekly")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func renderReport(out io.Writer, report *core.ExecutionReport) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, RenderTitle(fmt.Sprintf("EXECUTION  %s  %s", report.PeriodName, report.ViewMode)))
	fmt.Fprintln(out)

	if len(report.Data) == 0 {
		fmt.Fprintln(out, "  No installments for this period.")
		writeSkipped(out, report.Skipped)
		return
	}

	rows := make([][]string, 0, len(report.Data))
	for _, b := range report.Data {
		label := b.Key
		if report.ViewMode == core.ViewWeekly {
			label = fmt.Sprintf("%s (%s..%s)", b.Key, b.WeekStart, b.WeekEnd)
		}
		rows = append(rows, []string{label, FormatCount(b.BudgetCount), FormatCount(b.InstallmentCount), FormatMoney(b.Amount)})
	}
	fmt.Fprint(out, RenderTable(Table{
		Headers: []string{"Bucket", "Budgets", "Installments", "Amount"},
		Rows:    rows,
	}))

	s := report.Summary
	fmt.Fprintln(out)
	fmt.Fprint(out, RenderKeyValues([][2]string{
		{"Total", FormatMoney(s.TotalBudget)},
		{"Average per bucket", FormatMoney(s.AveragePerDay)},
		{"Peak", fmt.Sprintf("%s (%s)", s.PeakKey, FormatMoney(s.PeakAmount))},
		{"Installments", FormatCount(s.InstallmentCount)},
	}))
	writeSkipped(out, report.Skipped)
}

func writeSkipped(out io.Writer, skipped []core.SkippedBudget) {
	for _, s := range skipped {
		fmt.Fprintln(out, RenderWarning(fmt.Sprintf("skipped budget %s: %s", s.BudgetID, s.Reason)))
	}
}
