package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/config"
	"github.com/mcclellann/fredLedger/pkg/events"
	"github.com/mcclellann/fredLedger/pkg/ledger"
	"github.com/mcclellann/fredLedger/pkg/logging"
	"github.com/mcclellann/fredLedger/pkg/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// app is what every subcommand needs: validated configuration, a logger and an open store.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *store.SQLiteStore
}

func bootstrap(envFile string) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: level, Format: cfg.LogFormat, Component: logging.ComponentApp})
	logging.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.DBPath, store.Options{
		BusyTimeout: cfg.DBBusyTimeout,
		Logger:      logger.WithComponent(logging.ComponentStore).Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: s}, nil
}

func (a *app) newLedger(publisher events.Publisher) *ledger.Ledger {
	return ledger.NewLedger(a.store,
		ledger.WithPublisher(publisher),
		ledger.WithLogger(a.logger),
		ledger.WithUpcomingDefaultDays(a.cfg.UpcomingDefaultDays),
	)
}

func newRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "fredledger",
		Short: "Household cost center ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of ./.env")

	rootCmd.AddCommand(
		newServeCommand(&envFile),
		newMigrateCommand(&envFile),
		newUpcomingCommand(&envFile),
		newReconcileCommand(&envFile),
	)
	return rootCmd
}

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the overdue payment sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer a.store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	var publisher events.Publisher = events.Discard{}
	if a.cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(a.cfg.AMQPURL, a.cfg.AMQPExchange,
			a.logger.WithComponent(logging.ComponentEvents).Logger)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	} else {
		a.logger.Info("AMQP_URL not set, ledger events are not published")
	}

	l := a.newLedger(publisher)
	srv := &http.Server{
		Addr:           ":" + a.cfg.Port,
		Handler:        NewServer(l, a.logger).Routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Server starting", "port", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.cfg.OverdueSweepInterval > 0 {
		g.Go(func() error {
			sweepOverdue(gctx, l, a.cfg.OverdueSweepInterval, a.logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

// sweepOverdue marks past-due payments overdue once at start and then on every tick until ctx ends.
func sweepOverdue(ctx context.Context, l *ledger.Ledger, interval time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := l.MarkOverduePayments(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Overdue sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newMigrateCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer a.store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", a.cfg.DBPath)
			return nil
		},
	}
}

func costCenterFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "cost-center", "", "cost center id (required)")
	_ = cmd.MarkFlagRequired("cost-center")
}

func newUpcomingCommand(envFile *string) *cobra.Command {
	var ccID string
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List unpaid installment payments coming due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(ccID)
			if err != nil {
				return fmt.Errorf("invalid cost center id: %w", err)
			}
			a, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer a.store.Close()

			payments, err := a.newLedger(events.Discard{}).ListUpcomingPayments(cmd.Context(), id, days)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DUE\tPAYMENT\tAMOUNT\tSTATUS\tINSTALLMENT")
			for _, p := range payments {
				fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\t%s\n", p.DueDate.Format(time.DateOnly), p.PaymentNumber,
					p.Amount.StringFixed(2), p.Status, p.InstallmentID)
			}
			return tw.Flush()
		},
	}
	costCenterFlag(cmd, &ccID)
	cmd.Flags().IntVar(&days, "days", 0, "look-ahead window in days (0 uses UPCOMING_DEFAULT_DAYS)")
	return cmd
}

func newReconcileCommand(envFile *string) *cobra.Command {
	var ccID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare wallet balances with the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(ccID)
			if err != nil {
				return fmt.Errorf("invalid cost center id: %w", err)
			}
			a, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer a.store.Close()

			report, err := a.newLedger(events.Discard{}).Reconcile(cmd.Context(), id)
			if err != nil {
				return err
			}
			drifted := 0
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WALLET\tSTORED\tDERIVED\tOK")
			for _, r := range report {
				if !r.Consistent {
					drifted++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", r.Name, r.Stored.StringFixed(2), r.Derived.StringFixed(2), r.Consistent)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if drifted > 0 {
				return fmt.Errorf("%d wallet(s) out of balance", drifted)
			}
			return nil
		},
	}
	costCenterFlag(cmd, &ccID)
	return cmd
}
