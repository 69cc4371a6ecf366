// Package lspserver adapts internal/dispatcher and the providers to the
// LSP wire protocol: JSON-RPC 2.0 over Content-Length-framed stdio or TCP,
// using github.com/sourcegraph/jsonrpc2 for the framing/dispatch
// primitives, per spec.md §6's method list.
package lspserver

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"github.com/dosco/sqlls/internal/catalog"
	"github.com/dosco/sqlls/internal/config"
	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/dispatcher"
	"github.com/dosco/sqlls/internal/store"
)

// Server owns the document store, catalog cache, and dispatcher backing
// every connection. One Server can serve multiple client connections
// (stdio is one connection for the process lifetime; TCP may accept
// several).
type Server struct {
	cfg   *config.Config
	id    dialect.ID
	store *store.Store
	cats  *catalog.Cache
	pool  *dispatcher.Pool
	log   *zap.SugaredLogger

	mu        sync.Mutex
	catalogOf catalog.Catalog // resolved once per server, shared by every document
}

// New builds a Server from cfg. It does not open any catalog connection
// until the first request needs one (live catalogs dial lazily through
// cats.GetOrBuild).
func New(cfg *config.Config, log *zap.SugaredLogger) (*Server, error) {
	st, err := store.New(2048)
	if err != nil {
		return nil, fmt.Errorf("lspserver: document store: %w", err)
	}
	cats, err := catalog.NewCache(16)
	if err != nil {
		return nil, fmt.Errorf("lspserver: catalog cache: %w", err)
	}

	workers := cfg.Server.Workers
	var opts []dispatcher.Option
	if workers > 0 {
		opts = append(opts, dispatcher.WithWorkers(workers))
	}
	opts = append(opts, dispatcher.WithLogger(log))

	return &Server{
		cfg:   cfg,
		id:    cfg.DialectID(),
		store: st,
		cats:  cats,
		pool:  dispatcher.New(opts...),
		log:   log,
	}, nil
}

// Close releases the dispatcher pool and every cached catalog connection.
func (s *Server) Close() error {
	s.pool.Close()
	return s.cats.Close()
}

// ServeStream runs the JSON-RPC connection over rwc (a ReadWriteCloser —
// os.Stdin/os.Stdout combined, or one TCP connection) until it closes.
func (s *Server) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	handler := jsonrpc2.HandlerWithError(s.handle)
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), handler)
	<-conn.DisconnectNotify()
	return nil
}

func (s *Server) resolveCatalog(ctx context.Context) (catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalogOf != nil {
		return s.catalogOf, nil
	}

	var key string
	switch s.cfg.Catalog.Mode {
	case config.CatalogModeLive:
		key = "live:" + s.cfg.Catalog.ConnectionString
	case config.CatalogModeStatic:
		key = "static:" + s.cfg.Catalog.SnapshotPath
	}

	cat, err := s.cats.GetOrBuild(ctx, key, func(ctx context.Context) (catalog.Catalog, error) {
		return s.buildCatalog(ctx)
	})
	if err != nil {
		return nil, err
	}
	s.catalogOf = cat
	return cat, nil
}
