// Package app wires the snippet catalog service: configuration, SQLite
// storage, the annotation client, the reconciliation engine, and the MCP
// surface over stdio or streamable HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpapi "github.com/louisbranch/indexshell/internal/catalog/api/mcp"
	"github.com/louisbranch/indexshell/internal/catalog/annotate"
	"github.com/louisbranch/indexshell/internal/catalog/engine"
	"github.com/louisbranch/indexshell/internal/catalog/identity"
	catalogsqlite "github.com/louisbranch/indexshell/internal/catalog/storage/sqlite"
	"github.com/louisbranch/indexshell/internal/platform/config"
	"github.com/louisbranch/indexshell/internal/platform/requestctx"
	"github.com/louisbranch/indexshell/internal/platform/timeouts"
)

const (
	serverName    = "indexshell"
	serverVersion = "0.1.0"
)

// Transport selects how the MCP server is exposed.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// serverEnv holds env-parsed configuration for the catalog server.
type serverEnv struct {
	DBPath string `env:"INDEXSHELL_DB_PATH"`

	// Identity is the fixed caller identity for stdio mode. HTTP mode
	// ignores it; identity comes from the verified bearer grant.
	Identity string `env:"INDEXSHELL_IDENTITY"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "indexshell.db")
	}
	return cfg, nil
}

// Server hosts the snippet catalog over MCP.
type Server struct {
	store     *catalogsqlite.Store
	engine    *engine.Engine
	mcpServer *mcp.Server
	identity  string
	closeOnce sync.Once
}

// New creates a configured catalog server. The annotator requires
// INDEXSHELL_GEMINI_API_KEY; storage defaults to data/indexshell.db.
func New(ctx context.Context) (*Server, error) {
	srvEnv, err := loadServerEnv()
	if err != nil {
		return nil, err
	}

	store, err := openCatalogStore(srvEnv.DBPath)
	if err != nil {
		return nil, err
	}

	annotator, err := annotate.NewGeminiFromEnv(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure annotator: %w", err)
	}

	return newServer(store, annotator, srvEnv.Identity), nil
}

// newServer assembles the engine and MCP surface from explicit collaborators.
func newServer(store *catalogsqlite.Store, annotator annotate.Annotator, fallbackIdentity string) *Server {
	eng := engine.New(store, store, annotator)
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcpapi.Register(mcpServer, eng, mcpapi.ResolveIdentity(fallbackIdentity))
	return &Server{
		store:     store,
		engine:    eng,
		mcpServer: mcpServer,
		identity:  fallbackIdentity,
	}
}

// Close releases the server's storage handle. Safe to call multiple times.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.store.Close()
	})
	return err
}

// Run blocks serving MCP until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport, httpAddr string) error {
	switch transport {
	case TransportStdio, "":
		if strings.TrimSpace(s.identity) == "" {
			return fmt.Errorf("INDEXSHELL_IDENTITY is required for stdio transport")
		}
		return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return s.runHTTP(ctx, httpAddr)
	default:
		return fmt.Errorf("transport %q is not supported", transport)
	}
}

// runHTTP serves the MCP server over streamable HTTP behind grant
// verification. Binding defaults to localhost only.
func (s *Server) runHTTP(ctx context.Context, addr string) error {
	if addr == "" {
		addr = "localhost:8080"
	}

	verifier, err := identity.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		return fmt.Errorf("configure grant verifier: %w", err)
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           grantMiddleware(verifier, handler),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// grantMiddleware verifies the bearer grant on every request and stores the
// resulting identity in the request context for the tool handlers.
func grantMiddleware(cfg identity.VerifierConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grant, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		caller, err := identity.VerifyGrant(grant, cfg)
		if err != nil {
			log.Printf("reject grant: %v", err)
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "invalid grant", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithIdentity(r.Context(), caller)))
	})
}

// bearerToken extracts the bearer token from an Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// openCatalogStore opens the SQLite store, creating the parent directory.
func openCatalogStore(path string) (*catalogsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := catalogsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog sqlite store: %w", err)
	}
	return store, nil
}
