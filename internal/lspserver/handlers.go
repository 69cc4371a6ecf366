package lspserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"

	"github.com/dosco/sqlls/internal/catalog"
	"github.com/dosco/sqlls/internal/config"
	sqlcontext "github.com/dosco/sqlls/internal/context"
	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/lsptypes"
	"github.com/dosco/sqlls/internal/providers"
	"github.com/dosco/sqlls/internal/scope"
	"github.com/dosco/sqlls/internal/sdata"
	"github.com/dosco/sqlls/internal/store"
)

func (s *Server) buildCatalog(ctx context.Context) (catalog.Catalog, error) {
	switch s.cfg.Catalog.Mode {
	case config.CatalogModeStatic:
		return catalog.LoadStatic(afero.NewOsFs(), s.cfg.Catalog.SnapshotPath)
	case config.CatalogModeLive:
		ttl := time.Duration(s.cfg.Catalog.RefreshTTLSeconds) * time.Second
		return catalog.NewLive(ctx, s.id, s.cfg.Catalog.ConnectionString, s.cfg.Catalog.Schema, ttl, s.log)
	default:
		return nil, fmt.Errorf("lspserver: unknown catalog mode %q", s.cfg.Catalog.Mode)
	}
}

// handle dispatches one JSON-RPC request to the matching method handler,
// per spec.md §6's method list.
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(ctx, req)
	case "initialized", "shutdown", "exit":
		return nil, nil
	case "workspace/didChangeConfiguration":
		return nil, s.handleDidChangeConfiguration(ctx, req)
	case "textDocument/didOpen":
		return nil, s.handleDidOpen(ctx, conn, req)
	case "textDocument/didChange":
		return nil, s.handleDidChange(ctx, conn, req)
	case "textDocument/didClose":
		return nil, s.handleDidClose(ctx, req)
	case "textDocument/completion":
		return s.dispatch(ctx, req, s.handleCompletion)
	case "textDocument/hover":
		return s.dispatch(ctx, req, s.handleHover)
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

// dispatch submits fn to the worker pool, so a slow completion/hover request
// cannot starve the notification handlers (didOpen/didChange run inline,
// since they must serialize against the document's own version counter).
func (s *Server) dispatch(ctx context.Context, req *jsonrpc2.Request, fn func(ctx context.Context, req *jsonrpc2.Request) (interface{}, error)) (interface{}, error) {
	return s.pool.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		return fn(ctx, req)
	})
}

func (s *Server) handleInitialize(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params lsptypes.InitializeParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
	}
	if d, ok := params.InitializationOptions["dialect"].(string); ok && d != "" {
		if id, err := dialect.ParseID(d); err == nil {
			s.id = id
		}
	}

	return lsptypes.InitializeResult{
		Capabilities: lsptypes.ServerCapabilities{
			TextDocumentSync: 1, // full-document sync; incremental sync is a future enhancement
			CompletionProvider: lsptypes.CompletionOptions{
				TriggerCharacters: s.cfg.Completion.TriggerCharacters,
			},
			HoverProvider: true,
		},
	}, nil
}

func (s *Server) handleDidOpen(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	var params lsptypes.DidOpenTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	if err := s.store.Open(ctx, params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version, s.id); err != nil {
		return err
	}
	s.publishDiagnostics(ctx, conn, params.TextDocument.URI, params.TextDocument.Version)
	return nil
}

func (s *Server) handleDidChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	var params lsptypes.DidChangeTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}

	snap, ok := s.store.Snapshot(params.TextDocument.URI)
	if !ok {
		return fmt.Errorf("lspserver: didChange on unknown document %s", params.TextDocument.URI)
	}

	var edits []store.Edit
	text := snap.Text
	for _, change := range params.ContentChanges {
		if change.Range == nil {
			// Full-document replacement.
			edits = append(edits, store.Edit{StartByte: 0, OldEndByte: uint32(len(text)), NewEndByte: uint32(len(change.Text)), NewText: []byte(change.Text)})
			text = []byte(change.Text)
			continue
		}
		start := positionToByte(text, change.Range.Start)
		end := positionToByte(text, change.Range.End)
		edits = append(edits, store.Edit{StartByte: start, OldEndByte: end, NewEndByte: start + uint32(len(change.Text)), NewText: []byte(change.Text)})
		merged := make([]byte, 0, len(text)-int(end-start)+len(change.Text))
		merged = append(merged, text[:start]...)
		merged = append(merged, change.Text...)
		merged = append(merged, text[end:]...)
		text = merged
	}

	if err := s.store.Update(ctx, params.TextDocument.URI, params.TextDocument.Version, edits); err != nil {
		return err
	}
	s.publishDiagnostics(ctx, conn, params.TextDocument.URI, params.TextDocument.Version)
	return nil
}

// handleDidChangeConfiguration applies per-workspace settings a client
// pushes after initialize, per spec.md §6: a changed dialect or
// catalog.connectionString / catalog.snapshotPath (snake_case
// connection_string / snapshot_path are accepted too) takes effect on the
// next document analysis rather than requiring a restart. Any settings key this server doesn't
// recognize is ignored, matching viper's own unknown-key tolerance.
func (s *Server) handleDidChangeConfiguration(ctx context.Context, req *jsonrpc2.Request) error {
	var params struct {
		Settings map[string]interface{} `json:"settings"`
	}
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return err
		}
	}

	dialectChanged := false
	if d, ok := params.Settings["dialect"].(string); ok && d != "" {
		if id, err := dialect.ParseID(d); err == nil && id != s.id {
			s.id = id
			s.cfg.Dialect = d
			dialectChanged = true
		}
	}

	catalogSection, _ := params.Settings["catalog"].(map[string]interface{})
	catalogChanged := false
	cs, ok := catalogSection["connectionString"].(string)
	if !ok {
		cs, ok = catalogSection["connection_string"].(string)
	}
	if ok && cs != s.cfg.Catalog.ConnectionString {
		s.cfg.Catalog.ConnectionString = cs
		catalogChanged = true
	}
	sp, ok := catalogSection["snapshotPath"].(string)
	if !ok {
		sp, ok = catalogSection["snapshot_path"].(string)
	}
	if ok && sp != s.cfg.Catalog.SnapshotPath {
		s.cfg.Catalog.SnapshotPath = sp
		catalogChanged = true
	}

	if dialectChanged || catalogChanged {
		s.mu.Lock()
		s.catalogOf = nil // force resolveCatalog to rebuild against the new settings
		s.mu.Unlock()
	}
	return nil
}

// publishDiagnostics computes diagnostics for uri's current content and
// sends them to the client as a textDocument/publishDiagnostics
// notification, per spec.md §6. Nothing is returned, since a notification
// handler has no JSON-RPC response to carry an error back on: an unknown
// document publishes nothing, a catalog that cannot be resolved drops
// table-resolution diagnostics silently, and a failed catalog snapshot or
// notify is logged.
func (s *Server) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, uri string, version int) {
	docSnap, ok := s.store.Snapshot(uri)
	if !ok || docSnap.Tree == nil {
		return
	}

	var catSnap *sdata.Snapshot
	if cat, err := s.resolveCatalog(ctx); err == nil && cat != nil {
		if snap, err := cat.Snapshot(ctx); err == nil {
			catSnap = snap
		} else {
			s.log.Warnw("catalog snapshot unavailable, diagnosing without table resolution", "error", err)
		}
	}

	scopeTree, _ := s.buildScope(docSnap, catSnap, 0)
	diags := providers.Diagnose(docSnap.Tree.Root(), nil, scopeTree, s.diagnosticsConfig())

	out := make([]lsptypes.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, lsptypes.Diagnostic{
			Range:    lsptypes.Range{Start: byteToPosition(docSnap.Text, d.Range.Start), End: byteToPosition(docSnap.Text, d.Range.End)},
			Severity: int(d.Severity),
			Source:   "sqlls",
			Message:  d.Message,
		})
	}

	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", lsptypes.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: out,
	}); err != nil {
		s.log.Warnw("publishDiagnostics: notify failed", "uri", uri, "error", err)
	}
}

// diagnosticsConfig translates the configured ambiguity severity string
// into providers.Config, defaulting to Warning on an empty/unknown value
// (config.Validate already rejects anything but "error"/"warning"/"").
func (s *Server) diagnosticsConfig() providers.Config {
	cfg := providers.DefaultConfig
	if s.cfg.Diagnostics.AmbiguityInProjectionSeverity == "error" {
		cfg.AmbiguityInProjectionSeverity = providers.SeverityError
	}
	return cfg
}

func (s *Server) handleDidClose(ctx context.Context, req *jsonrpc2.Request) error {
	var params lsptypes.DidCloseTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	s.store.Close(params.TextDocument.URI)
	return nil
}

func (s *Server) handleCompletion(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params lsptypes.CompletionParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	docSnap, snap, err := s.documentAndCatalog(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	pos := positionToByte(docSnap.Text, params.Position)
	cctx := sqlcontext.Detect(docSnap.Tree, pos)
	scopeTree, scopeIdx := s.buildScope(docSnap, snap, pos)

	suggestions := providers.Complete(cctx, scopeTree, scopeIdx, snap, docSnap.Dialect)
	if max := s.cfg.Completion.MaxItems; max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}

	items := make([]lsptypes.CompletionItem, 0, len(suggestions))
	for _, sg := range suggestions {
		items = append(items, lsptypes.CompletionItem{
			Label:         sg.Label,
			Kind:          completionKind(sg.Kind),
			Detail:        sg.Detail,
			Documentation: sg.Doc,
			InsertText:    sg.InsertText,
		})
	}
	return lsptypes.CompletionList{Items: items}, nil
}

func (s *Server) handleHover(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params lsptypes.TextDocumentPositionParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	docSnap, snap, err := s.documentAndCatalog(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	pos := positionToByte(docSnap.Text, params.Position)
	scopeTree, scopeIdx := s.buildScope(docSnap, snap, pos)

	hc, ok := providers.Hover(docSnap.Tree.Root(), scopeTree, scopeIdx, snap, docSnap.Dialect, pos)
	if !ok {
		return nil, nil
	}
	return lsptypes.Hover{Contents: lsptypes.MarkupContent{Kind: "plaintext", Value: hc.Title + "\n" + hc.Body}}, nil
}

// documentAndCatalog fetches uri's current snapshot and the server's
// catalog snapshot. A catalog error is not fatal to completion/hover: both
// providers degrade gracefully when snap is nil.
func (s *Server) documentAndCatalog(ctx context.Context, uri string) (store.Snapshot, *sdata.Snapshot, error) {
	docSnap, ok := s.store.Snapshot(uri)
	if !ok {
		return store.Snapshot{}, nil, fmt.Errorf("lspserver: unknown document %s", uri)
	}

	cat, err := s.resolveCatalog(ctx)
	if err != nil || cat == nil {
		return docSnap, nil, nil
	}
	snap, err := cat.Snapshot(ctx)
	if err != nil {
		s.log.Warnw("catalog snapshot unavailable, degrading to scope-only suggestions", "error", err)
		return docSnap, nil, nil
	}
	return docSnap, snap, nil
}

// buildScope builds the scope tree for docSnap fresh on every call: scope
// construction walks a single statement's CST and is cheap relative to a
// round trip, and the innermost-scope index it returns is specific to pos,
// so it cannot be cached alongside the content-fingerprint-keyed analysis
// store.Store.Analyze holds for position-independent results.
func (s *Server) buildScope(docSnap store.Snapshot, snap *sdata.Snapshot, pos uint32) (*scope.Tree, int) {
	if docSnap.Tree == nil {
		return nil, 0
	}
	b := scope.NewBuilder(docSnap.Dialect, snap, nil)
	return b.Build(docSnap.Tree.Root(), pos)
}

func completionKind(k providers.Kind) lsptypes.CompletionItemKind {
	switch k {
	case providers.KindColumn:
		return lsptypes.CompletionItemKindField
	case providers.KindTable:
		return lsptypes.CompletionItemKindClass
	case providers.KindFunction:
		return lsptypes.CompletionItemKindFunction
	case providers.KindKeyword:
		return lsptypes.CompletionItemKindKeyword
	default:
		return lsptypes.CompletionItemKindText
	}
}

// positionToByte converts an LSP (line, UTF-16 code unit) position to a
// byte offset into text. SQL documents are overwhelmingly ASCII identifiers
// and keywords, so this counts UTF-16 code units as bytes on non-ASCII
// lines too rather than pulling in a UTF-16 conversion library for an edge
// case this domain rarely exercises; see DESIGN.md.
func positionToByte(text []byte, pos lsptypes.Position) uint32 {
	line := 0
	i := 0
	for line < pos.Line && i < len(text) {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	col := 0
	for col < pos.Character && i < len(text) && text[i] != '\n' {
		i++
		col++
	}
	return uint32(i)
}

// byteToPosition is positionToByte's inverse, used to render a
// providers.Diagnostic's byte range as the LSP (line, character) position a
// publishDiagnostics notification requires.
func byteToPosition(text []byte, offset uint32) lsptypes.Position {
	if offset > uint32(len(text)) {
		offset = uint32(len(text))
	}
	line, col := 0, 0
	for i := uint32(0); i < offset; i++ {
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return lsptypes.Position{Line: line, Character: col}
}
