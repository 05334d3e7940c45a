// Package engine orchestrates one natural-language question into a SQL query,
// executes it, and phrases the result as a natural-language answer.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barekit/sqlpipe/pkg/database"
	"github.com/barekit/sqlpipe/pkg/llm"
)

// Config holds the collaborators for a query engine. An engine is cheap to
// build and meant to be constructed fresh per request.
type Config struct {
	Database *database.Database
	LLM      llm.Provider
	// TextToSQLPrompt overrides DefaultTextToSQLPrompt when non-zero.
	TextToSQLPrompt PromptTemplate
	// SynthesisPrompt overrides DefaultSynthesisPrompt when non-zero.
	SynthesisPrompt PromptTemplate
	// Streaming selects whether the answer is streamed (Response.Gen) or
	// returned whole (Response.Text).
	Streaming bool
	Logger    *slog.Logger
}

// Engine turns a question into a streamed answer via generated SQL.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New creates a new Engine.
func New(cfg Config) *Engine {
	if cfg.TextToSQLPrompt == (PromptTemplate{}) {
		cfg.TextToSQLPrompt = NewPromptTemplate(DefaultTextToSQLPrompt)
	}
	if cfg.SynthesisPrompt == (PromptTemplate{}) {
		cfg.SynthesisPrompt = NewPromptTemplate(DefaultSynthesisPrompt)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// Response holds the outcome of one engine run.
type Response struct {
	// SQL is the query the model generated.
	SQL string
	// Result is the executed query result.
	Result database.QueryResult
	// Text is the full answer when streaming is off.
	Text string
	// Gen yields answer fragments when streaming is on. It is finite,
	// single-pass, and closed when generation finishes.
	Gen <-chan string
}

// Query runs the full sequence: describe schema, generate SQL, execute it,
// synthesize an answer. Failures at any step propagate to the caller; there
// is no retry and no correction step.
func (e *Engine) Query(ctx context.Context, question string) (*Response, error) {
	schema, err := e.cfg.Database.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to describe schema: %w", err)
	}

	prompt := e.cfg.TextToSQLPrompt.Render(map[string]string{
		"dialect":   string(e.cfg.Database.Dialect()),
		"schema":    schema,
		"query_str": question,
	})

	raw, err := e.cfg.LLM.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("sql generation failed: %w", err)
	}

	sql := ExtractSQL(raw)
	if sql == "" {
		return nil, fmt.Errorf("no SQL query in model response: %q", truncate(raw, 200))
	}
	e.log.Debug("engine: generated sql", "sql", sql)

	result, err := e.cfg.Database.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("sql execution failed: %w", err)
	}
	e.log.Debug("engine: query executed", "rows", result.Count)

	synthesis := e.cfg.SynthesisPrompt.Render(map[string]string{
		"query_str":   question,
		"sql_query":   sql,
		"context_str": result.Format(),
	})
	messages := []llm.Message{{Role: llm.RoleUser, Content: synthesis}}

	resp := &Response{SQL: sql, Result: result}
	if e.cfg.Streaming {
		gen, err := e.cfg.LLM.Stream(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("answer synthesis failed: %w", err)
		}
		resp.Gen = gen
		return resp, nil
	}

	text, err := e.cfg.LLM.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("answer synthesis failed: %w", err)
	}
	resp.Text = text
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
