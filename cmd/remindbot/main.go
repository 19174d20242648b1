// Command remindbot is an IRC bot that delivers reminders
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aerth/remindbot/internal/metrics"
	"github.com/aerth/remindbot/ircb"
	"github.com/aerth/remindbot/remind"
	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	flaghost          = flag.String("h", "localhost:6667", "host (in the format 'host:port')")
	flagnick          = flag.String("n", "remindbot", "nick")
	flagmaster        = flag.String("m", "root:@", "master:commandprefix")
	flagcommandprefix = flag.String("c", "!", "public command prefix")
	flagchannels      = flag.String("j", "", "comma separated channels to join")
	flagssl           = flag.Bool("ssl", false, "use ssl to connect")
	flaginvalidssl    = flag.Bool("x", false, "accept invalid tls certificates")
	flagverbose       = flag.Bool("v", false, "verbose logging")
	flagdriver        = flag.String("driver", "sqlite3", "reminder store: sqlite3 or postgres")
	flagdsn           = flag.String("dsn", "remind.db", "sqlite file or postgres url")
	flagmetrics       = flag.String("metrics", "", "serve /metrics on this address, like :9090")
	flagconfig        = flag.String("config", "config.json", "json config, written back on exit")
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

func main() {
	flag.Parse()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		red.Fprintln(os.Stderr, "could not load .env:", err)
	}

	config, err := loadconfig(*flagconfig)
	if err != nil {
		red.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := ircb.NewLogger(config.Verbose, config.LogFile)
	if err != nil {
		red.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	green.Fprintf(os.Stderr, "remindbot %s on %s (store: %s)\n", config.Nick, config.Host, config.RemindDriver)
	if err := run(config, logger); err != nil {
		logger.Fatal("remindbot stopped", zap.Error(err))
	}

	if b, err := config.Marshal(); err == nil {
		if err := os.WriteFile(*flagconfig, b, 0600); err != nil {
			logger.Error("could not save config", zap.Error(err))
		}
	}
}

func run(config *ircb.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := remind.Open(ctx, config.RemindDriver, config.RemindDSN, nil)
	if err != nil {
		return fmt.Errorf("open reminder store: %w", err)
	}
	defer store.Close()

	conn, err := config.NewConnection(logger.Sugar())
	if err != nil {
		return err
	}
	defer conn.Shutdown()

	rlog := logger.Named("remind")
	worker := remind.NewWorker(store, conn, remind.WorkerConfig{}, rlog)
	remind.NewPlugin(store, worker, nil, conn.Timezone, rlog).Register(ctx, conn)

	if config.MetricsAddr != "" {
		srv := metricsServer(config.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// reconnect until interrupted
	for {
		err := conn.Connect(ctx)
		if ctx.Err() != nil {
			logger.Info("shutdown signal received")
			return nil
		}
		logger.Warn("disconnected, reconnecting in 30s", zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(30 * time.Second):
		}
	}
}

func metricsServer(addr string, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

// loadconfig builds the config from flags, then the json file if present,
// then the environment.
func loadconfig(path string) (*ircb.Config, error) {
	config := ircb.NewDefaultConfig()
	config.Host = *flaghost
	config.Nick = *flagnick
	config.Master = *flagmaster
	config.CommandPrefix = *flagcommandprefix
	config.Channels = *flagchannels
	config.UseSSL = *flagssl
	config.InvalidSSL = *flaginvalidssl
	config.Verbose = *flagverbose
	config.RemindDriver = *flagdriver
	config.RemindDSN = *flagdsn
	config.MetricsAddr = *flagmetrics

	b, err := os.ReadFile(path)
	switch {
	case err == nil && len(b) != 0:
		if err := json.Unmarshal(b, config); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	env := map[string]*string{
		"MASTER":        &config.Master,
		"ADDR":          &config.Host,
		"NICK":          &config.Nick,
		"REMIND_DRIVER": &config.RemindDriver,
		"REMIND_DSN":    &config.RemindDSN,
		"TZ_NAME":       &config.Timezone,
		"METRICS_ADDR":  &config.MetricsAddr,
	}
	for name, field := range env {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
	return config, nil
}
