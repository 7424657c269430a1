package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocjay1/budget-ledger/internal/config"
	"github.com/rocjay1/budget-ledger/internal/handler"
	"github.com/rocjay1/budget-ledger/internal/ledger"
	"github.com/rocjay1/budget-ledger/internal/lock"
	"github.com/rocjay1/budget-ledger/internal/services"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP custom handler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

// closer releases a backend connection on shutdown.
type closer func(context.Context) error

// closeBackend runs cl under its own deadline; ctx is usually done by now.
func closeBackend(ctx context.Context, name string, cl closer) {
	if cl == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := cl(ctx); err != nil {
		slog.Warn("failed to close backend", "backend", name, "error", err)
	}
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, closer, error) {
	switch sc.Backend {
	case config.StoreTables:
		s, err := services.NewTableStore(ctx, sc.TableURL, sc.TablePrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StoreMongo:
		client, err := services.ConnectToMongoDB(ctx, sc.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		s := services.NewMongoStore(services.NewMongoProvider(client, sc.MongoDatabase))
		return s, client.Disconnect, nil
	default:
		slog.Warn("using in-memory store, data is lost on exit")
		return store.NewMemory(), nil, nil
	}
}

func openLocker(ctx context.Context, lc config.LockConfig) (lock.Locker, closer, error) {
	if lc.Backend != config.LockRedis {
		return lock.NewKeyed(lc.Wait), nil, nil
	}

	client, err := lock.ConnectRedis(ctx, lc.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	opts := lock.DefaultRedisOptions()
	opts.Expiry = lc.Expiry
	opts.Tries = lc.Tries
	opts.RetryDelay = lc.RetryDelay
	l, err := lock.NewRedis(client, opts)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return l, func(context.Context) error { return client.Close() }, nil
}

// buildDependencies wires the ledger services and whichever Azure
// integrations are configured.
func buildDependencies(s store.Store, l lock.Locker, c config.Config) *handler.Dependencies {
	deps := &handler.Dependencies{
		Transactions:    ledger.NewEngine(s, l),
		Accounts:        ledger.NewAccountService(s, l),
		Credits:         ledger.NewCreditService(s, l),
		Categories:      ledger.NewCategoryService(s, l),
		ImportContainer: c.Blob.Container,
		ImportQueue:     c.Queue.Name,
		Recipients:      c.Email.Recipients(),
	}

	if c.Blob.URL != "" {
		blob, err := services.NewBlobService(c.Blob.URL)
		if err != nil {
			slog.Warn("failed to init blob service, uploads disabled", "error", err)
		} else {
			deps.Blob = blob
		}
	}
	if c.Queue.URL != "" {
		queue, err := services.NewQueueService(c.Queue.URL)
		if err != nil {
			slog.Warn("failed to init queue service, uploads disabled", "error", err)
		} else {
			deps.Queue = queue
		}
	}
	if c.Email.Endpoint != "" {
		email, err := services.NewEmailService(c.Email.Endpoint, c.Email.Sender, nil)
		if err != nil {
			slog.Warn("failed to init email service (continuing anyway)", "error", err)
		} else {
			deps.Email = email
		}
	}
	return deps
}

func newRouter(deps *handler.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/accounts", deps.HandleAccounts)
	mux.HandleFunc("GET /api/accounts/interest", deps.HandleAccountInterest)
	mux.HandleFunc("/api/categories", deps.HandleCategories)
	mux.HandleFunc("GET /api/categories/children", deps.HandleCategoryChildren)
	mux.HandleFunc("/api/transactions", deps.HandleTransactions)
	mux.HandleFunc("/api/credits", deps.HandleCredits)
	mux.HandleFunc("GET /api/credits/summary", deps.HandleCreditSummary)
	mux.HandleFunc("GET /api/credits/upcoming", deps.HandleCreditsUpcoming)
	mux.HandleFunc("/api/credits/payments", deps.HandleCreditPayments)
	mux.HandleFunc("/api/credits/charges", deps.HandleCreditCharges)

	if deps.Blob != nil && deps.Queue != nil {
		mux.HandleFunc("POST /api/upload", deps.HandleUpload)
		mux.HandleFunc("/ProcessQueue", deps.ProcessQueue)
	} else {
		slog.Info("blob or queue not configured, csv import disabled")
	}

	// The host posts trigger invocations here when request forwarding is off.
	mux.HandleFunc("/HttpTrigger", deps.HandleHttpTrigger(mux))
	mux.HandleFunc("/NightlyTrigger", deps.HandleNightlyTrigger)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", unmatched)
	return mux
}

func serve(ctx context.Context, c config.Config) error {
	s, closeStore, err := openStore(ctx, c.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", c.Store.Backend, err)
	}
	defer closeBackend(ctx, "store", closeStore)

	l, closeLocker, err := openLocker(ctx, c.Lock)
	if err != nil {
		return fmt.Errorf("failed to open %s locker: %w", c.Lock.Backend, err)
	}
	defer closeBackend(ctx, "lock", closeLocker)

	srv := &http.Server{
		Addr:              ":" + c.Port,
		Handler:           loggingMiddleware(newRouter(buildDependencies(s, l, c))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", c.Port, "store", c.Store.Backend, "lock", c.Lock.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
