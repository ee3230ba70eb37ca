// Command library is the interactive front end of the library catalogue. Each
// subcommand opens the store, runs one operation and closes it again.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/catalog"
	"github.com/bookstore/services/library/internal/config"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/events"
	"github.com/bookstore/services/library/internal/lending"
	"github.com/bookstore/services/library/internal/members"
	"github.com/bookstore/services/library/internal/metrics"
	"github.com/bookstore/services/library/pkg/logger"
)

// Exit codes.
const (
	exitOK = iota
	exitFailure
	exitInvalid
	exitNotFound
	exitConflict
	exitStore
)

type options struct {
	dbPath   string
	dsn      string
	logLevel string
	period   int
	today    string
}

// app holds the services of one CLI invocation.
type app struct {
	db      *db.DB
	catalog *catalog.Service
	members *members.Service
	lending *lending.Engine
	log     *zap.Logger
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

func openApp(opts *options) (*app, error) {
	log := logger.NewCLILogger(opts.logLevel)

	driver, dsn := config.DriverSQLite, ""
	if opts.dsn != "" {
		driver, dsn = config.DriverPostgres, opts.dsn
	}

	database, err := db.Open(driver, dsn, opts.dbPath)
	if err != nil {
		return nil, apperr.Store("open database", err)
	}
	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, apperr.Store("migrate database", err)
	}

	engineOpts := []lending.Option{lending.WithBorrowingPeriod(opts.period)}
	if opts.today != "" {
		day, err := time.Parse(lending.DateLayout, opts.today)
		if err != nil {
			database.Close()
			return nil, apperr.Invalid("today", "must be a date like 2024-01-31")
		}
		engineOpts = append(engineOpts, lending.WithClock(lending.FixedClock(day)))
	}

	publisher := events.NopPublisher{}
	m := metrics.NewMetrics(nil)

	return &app{
		db:      database,
		catalog: catalog.NewService(database, publisher, m, log),
		members: members.NewService(database, publisher, m, log),
		lending: lending.NewEngine(database, publisher, m, log, engineOpts...),
		log:     log,
	}, nil
}

func newRootCmd(a *app) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Manage the library catalogue, members and loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opened, err := openApp(opts)
			if err != nil {
				return err
			}
			*a = *opened
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", "library.db", "SQLite database file")
	flags.StringVar(&opts.dsn, "dsn", os.Getenv("PG_DSN"), "PostgreSQL DSN, used instead of --db when set")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	flags.IntVar(&opts.period, "period", lending.DefaultBorrowingPeriod, "borrowing period in days")
	flags.StringVar(&opts.today, "today", "", "treat this date (YYYY-MM-DD) as today")
	_ = flags.MarkHidden("today")

	root.AddCommand(
		newBookCmd(a),
		newMemberCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newBorrowedCmd(a),
		newStatsCmd(a),
	)
	return root
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch apperr.Code(err) {
	case "":
		return exitOK
	case apperr.CodeValidation:
		return exitInvalid
	case apperr.CodeNotFound:
		return exitNotFound
	case apperr.CodeDuplicateISBN, apperr.CodeBookBorrowed, apperr.CodeAlreadyBorrowed, apperr.CodeNoOpenBorrowing:
		return exitConflict
	case apperr.CodeStore:
		return exitStore
	default:
		return exitFailure
	}
}

// errMessage renders err for the terminal.
func errMessage(err error) string {
	var ve apperr.ValidationError
	if errors.As(err, &ve) {
		return fmt.Sprintf("invalid %s: %s", ve.Field, ve.Message)
	}
	return err.Error()
}

// run executes one command line and returns the exit status. The store is
// closed on every path.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %s\n", errMessage(err))
		return exitCode(err)
	}
	return exitOK
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
