package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"leadwizard/api/pkg/clients/email"
	"leadwizard/api/pkg/clients/leadbus"
	"leadwizard/api/pkg/config"
	"leadwizard/api/pkg/db"
	"leadwizard/api/services/dispatch"
	"leadwizard/api/services/leads"
	"leadwizard/api/services/storage"
	"leadwizard/api/services/storage/sqlite"
	"leadwizard/api/services/wizard"
)

// embeddedNATS as NATS_URL runs the broker inside the process.
const embeddedNATS = "embedded"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(logHandler))

	catalog := wizard.DefaultCatalog()
	if cfg.VariantsPath != "" {
		vs, err := wizard.LoadVariantsFile(cfg.VariantsPath)
		if err != nil {
			slog.Error("Failed to load form variants", "path", cfg.VariantsPath, "error", err)
			return
		}
		catalog = catalog.With(vs...)
		slog.Info("Loaded form variants", "path", cfg.VariantsPath, "count", len(vs))
	}

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		return
	}
	defer closeStore()

	sinks := []dispatch.Sink{dispatch.StorageSink{Store: store}}

	if cfg.NotifyEmail != "" {
		var emailClient email.Client = email.NewStubClient(cfg.NotifyFrom)
		if cfg.SMTPAddr != "" {
			smtpClient, err := email.NewSMTPClient(cfg.SMTPAddr, cfg.NotifyFrom)
			if err != nil {
				slog.Error("Failed to create SMTP client", "error", err)
				return
			}
			emailClient = smtpClient
		}
		sinks = append(sinks, dispatch.NotifySink{Client: emailClient, To: cfg.NotifyEmail, From: cfg.NotifyFrom})
	}

	var (
		natsConn   *nats.Conn
		natsServer *server.Server
	)
	if cfg.NATSURL != "" {
		natsServer, natsConn, err = connectBus(cfg.NATSURL)
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			return
		}
		publisher, err := leadbus.NewNATSPublisher(natsConn, cfg.NATSSubjectPrefix)
		if err != nil {
			slog.Error("Failed to create lead publisher", "error", err)
			return
		}
		sinks = append(sinks, dispatch.PublishSink{Publisher: publisher})
	}

	dispatcher := dispatch.New(cfg.DispatchTimeout, sinks...)

	sessions := leads.NewSessions(cfg.SessionTTL, cfg.MaxSessions)
	go sessions.Run(ctx, time.Minute)

	// setup router
	mainRouter := mux.NewRouter()

	apiRouter := mainRouter.PathPrefix("/api/v1").Subrouter()

	leadService, err := leads.NewService(catalog, sessions, dispatcher, store)
	if err != nil {
		slog.Error("Failed to create lead service", "error", err)
		return
	}

	leadService.LoadRoutes(apiRouter)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
		handlers.AllowCredentials(),
	)(mainRouter)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "addr", cfg.Addr, "forms", len(catalog.List()))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
		}

	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Could not stop server gracefully", "error", err)
			srv.Close()
		}
	}

	// Accepted leads still in flight are delivered before the sinks close.
	dispatcher.Wait()
	leadbus.Close(natsConn, natsServer)
}

// openStorage picks PostgreSQL when DATABASE_URL is set and the SQLite file
// otherwise. The returned func releases the backend.
func openStorage(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	if cfg.DatabaseURL == "" {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using SQLite storage", "path", cfg.SQLitePath)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close SQLite storage", "error", err)
			}
		}, nil
	}

	dbCfg := db.DefaultConfig(cfg.DatabaseURL)
	dbCfg.MaxConns = cfg.DBMaxConns
	dbCfg.MinConns = min(dbCfg.MinConns, cfg.DBMaxConns)
	dbCfg.ConnectAttempts = cfg.DBConnectAttempts
	pool, err := db.Connect(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}

	pgStore, err := storage.NewInstance(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := pgStore.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("Using PostgreSQL storage")
	return pgStore, pool.Close, nil
}

// connectBus dials NATS_URL, or starts the in-process broker for
// "embedded". The server is nil unless embedded.
func connectBus(url string) (*server.Server, *nats.Conn, error) {
	if url == embeddedNATS {
		return leadbus.StartEmbedded()
	}
	conn, err := leadbus.Connect(url)
	return nil, conn, err
}
