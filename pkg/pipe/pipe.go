// Package pipe exposes a single request-handling entry point that answers a
// natural-language question by generating SQL with a locally hosted model,
// executing it against Postgres, and streaming back the phrased answer.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/barekit/sqlpipe/pkg/database"
	"github.com/barekit/sqlpipe/pkg/engine"
	"github.com/barekit/sqlpipe/pkg/llm"
	"github.com/barekit/sqlpipe/pkg/llm/ollama"
)

// Fixed model-host parameters. These are not overridable per request; the
// caller-supplied model id is deliberately ignored.
const (
	ollamaHost     = "http://host.docker.internal:11434"
	model          = "phi3:medium-128k"
	requestTimeout = 180 * time.Second
	contextWindow  = 30000
)

// defaultTables is the table allow-list the engine handle is scoped to.
var defaultTables = []string{"db_table"}

// ErrNotStarted is returned by Pipe when OnStartup has not run.
var ErrNotStarted = errors.New("pipe: database engine not initialized, call OnStartup first")

// Pipe is the request-handling component. Construct it once, call OnStartup,
// then serve any number of concurrent Pipe calls. The engine handle is shared
// read-only across requests; per-request state lives in the engine built for
// each call.
type Pipe struct {
	cfg      Config
	tables   []string
	db       *database.Database
	provider llm.Provider
	log      *slog.Logger
}

// Option is a function that configures a Pipe.
type Option func(*Pipe)

// WithTables overrides the table allow-list the handle is scoped to.
func WithTables(tables ...string) Option {
	return func(p *Pipe) {
		p.tables = append([]string(nil), tables...)
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipe) {
		p.log = log
	}
}

// WithDatabase injects an existing engine handle, skipping OnStartup's own
// construction. Tests use this with a mocked connection.
func WithDatabase(db *database.Database) Option {
	return func(p *Pipe) {
		p.db = db
	}
}

// WithProvider replaces the default per-request Ollama provider.
func WithProvider(provider llm.Provider) Option {
	return func(p *Pipe) {
		p.provider = provider
	}
}

// New creates a new Pipe.
func New(cfg Config, opts ...Option) *Pipe {
	p := &Pipe{
		cfg:    cfg,
		tables: defaultTables,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnStartup builds the engine handle all requests share. No connection is
// opened here; the driver connects on first use.
func (p *Pipe) OnStartup(ctx context.Context) error {
	if p.db != nil {
		return nil
	}

	db, err := database.Open(database.Config{
		Dialect: database.DialectPostgres,
		DSN:     p.cfg.DSN(),
		Tables:  p.tables,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database engine: %w", err)
	}

	p.db = db
	p.log.Debug("pipe: database engine initialized", "host", p.cfg.Host, "db", p.cfg.DBName, "tables", p.tables)
	return nil
}

// OnShutdown releases nothing; the engine handle lives for the process.
func (p *Pipe) OnShutdown(ctx context.Context) error {
	return nil
}

// Pipe answers one question. modelID is accepted for interface compatibility
// with hosting servers but ignored: the pipe always uses its configured
// model. messages (prior conversation turns) and body (request metadata) are
// likewise accepted and unused. The returned channel yields answer fragments
// and is finite and single-pass; the caller must drain it.
func (p *Pipe) Pipe(ctx context.Context, userMessage, modelID string, messages []llm.Message, body map[string]any) (<-chan string, error) {
	if p.db == nil {
		return nil, ErrNotStarted
	}

	_ = modelID
	_ = messages
	_ = body

	provider := p.provider
	if provider == nil {
		provider = ollama.New(ollama.Config{
			BaseURL:        ollamaHost,
			Model:          model,
			RequestTimeout: requestTimeout,
			ContextWindow:  contextWindow,
		})
	}

	eng := engine.New(engine.Config{
		Database:        p.db,
		LLM:             provider,
		TextToSQLPrompt: engine.NewPromptTemplate(engine.DefaultTextToSQLPrompt),
		Streaming:       true,
		Logger:          p.log,
	})

	resp, err := eng.Query(ctx, userMessage)
	if err != nil {
		return nil, err
	}
	return resp.Gen, nil
}
