// Package indexshell parses catalog server flags and selects stdio or HTTP
// transport.
package indexshell

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/louisbranch/indexshell/internal/catalog/app"
	"github.com/louisbranch/indexshell/internal/platform/config"
	"github.com/louisbranch/indexshell/internal/platform/otel"
)

// Config holds catalog server command configuration.
type Config struct {
	Transport string `env:"INDEXSHELL_TRANSPORT" envDefault:"stdio"`
	HTTPAddr  string `env:"INDEXSHELL_HTTP_ADDR" envDefault:"localhost:8080"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the catalog server and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "indexshell")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	srv, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("close server: %v", err)
		}
	}()

	return srv.Run(ctx, cfg.Transport, cfg.HTTPAddr)
}
