// Package pipeline wires the schema, normalizer, resolver, extractor and
// compiler into one immutable Engine.
package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
	"github.com/sayoon01/ald-nl2sql-stats/internal/resolve"
	"github.com/sayoon01/ald-nl2sql-stats/internal/schema"
	"github.com/sayoon01/ald-nl2sql-stats/internal/sqlgen"
	"github.com/sayoon01/ald-nl2sql-stats/internal/textnorm"
)

// Options configure New. Empty paths select the built-in documents.
type Options struct {
	SchemaPath       string
	RulesPath        string
	Dialect          string
	Table            string
	OutlierThreshold float64
	IncludeStats     bool
	Logger           *slog.Logger
}

// Engine answers questions. It is safe for concurrent use.
type Engine struct {
	store      *schema.Store
	normalizer *textnorm.Normalizer
	extractor  *intent.Extractor
	compiler   *sqlgen.Compiler
	logger     *slog.Logger
}

// Result is one answered question.
type Result struct {
	RequestID  string              `json:"request_id" yaml:"request_id"`
	Question   string              `json:"question" yaml:"question"`
	Normalized string              `json:"normalized" yaml:"normalized"`
	Intent     intent.ParsedIntent `json:"intent" yaml:"intent"`
	Statement  sqlgen.Statement    `json:"statement" yaml:"statement"`
	Spans      []textnorm.Span     `json:"spans,omitempty" yaml:"spans,omitempty"`
}

// New loads the documents and builds the collaborators. Unreadable
// documents degrade to empty ones; only an unknown dialect or an invalid
// table name is an error.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialect, err := sqlgen.ParseDialect(opts.Dialect)
	if err != nil {
		return nil, err
	}

	store := schema.NewStore(schema.LoadOrEmpty(opts.SchemaPath, logger))
	rules := resolve.LoadOrEmpty(opts.RulesPath, logger)
	normalizer := textnorm.New(store)
	resolver := resolve.New(rules)
	if rules.GenericField != "" && !store.IsValidField(rules.GenericField) {
		logger.Warn("rules reference an unknown generic field", "field", rules.GenericField)
	}

	compiler, err := sqlgen.New(store, sqlgen.Options{
		Dialect:          dialect,
		Table:            opts.Table,
		IncludeStats:     opts.IncludeStats,
		OutlierThreshold: opts.OutlierThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}

	e := &Engine{
		store:      store,
		normalizer: normalizer,
		extractor:  intent.New(store, normalizer, resolver, intent.WithLogger(logger)),
		compiler:   compiler,
		logger:     logger,
	}

	logger.Debug("pipeline ready",
		"fields", len(store.AllFields()),
		"aliases", normalizer.Index().Len(),
		"collisions", len(normalizer.Index().Collisions()),
		"dialect", dialect.Name(),
	)
	return e, nil
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
	defaultErr    error
)

// Default is an Engine over the built-in documents, built on first use.
func Default() (*Engine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultErr = New(Options{})
	})
	return defaultEngine, defaultErr
}

func (e *Engine) Store() *schema.Store { return e.store }

func (e *Engine) Compiler() *sqlgen.Compiler { return e.compiler }

// Index is the alias index the normalizer substitutes with.
func (e *Engine) Index() *schema.AliasIndex { return e.normalizer.Index() }

// Normalize runs only the text stage.
func (e *Engine) Normalize(question string) textnorm.NormalizedText {
	return e.normalizer.Normalize(question)
}

// Parse runs the text and extraction stages.
func (e *Engine) Parse(question string) (intent.ParsedIntent, error) {
	return e.extractor.ExtractNormalized(e.normalizer.Normalize(question))
}

// Ask compiles question to SQL. Errors are *intent.UnresolvedFieldError,
// *sqlgen.DisallowedFieldError or *sqlgen.UnsupportedError, all of which
// mean the question cannot be answered as asked.
func (e *Engine) Ask(question string) (Result, error) {
	id := uuid.NewString()
	log := e.logger.With("request_id", id)

	nt := e.normalizer.Normalize(question)
	res := Result{RequestID: id, Question: question, Normalized: nt.Text, Spans: nt.Spans}

	p, err := e.extractor.ExtractNormalized(nt)
	if err != nil {
		log.Debug("extraction failed", "error", err)
		return res, err
	}
	res.Intent = p

	st, err := e.compiler.Compile(p)
	if err != nil {
		log.Debug("compilation failed", "error", err, "field", p.Field)
		return res, err
	}
	res.Statement = st

	log.Debug("compiled",
		"category", p.Category,
		"template", st.Template,
		"params", len(st.Params),
	)
	return res, nil
}
