// Package engine serves highlight requests: it consults the incremental
// decision, runs the parser and highlighter when the cached result cannot be
// reused, and commits the outcome to the cache store.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/hlcache/internal/cache"
	"github.com/zjrosen/hlcache/internal/cachemanager"
	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/incremental"
	"github.com/zjrosen/hlcache/internal/log"
	"github.com/zjrosen/hlcache/internal/pubsub"
	"github.com/zjrosen/hlcache/internal/tracing"
)

// Request is one highlight call.
type Request struct {
	Language string
	Text     string
	// Names are the category names ranges index into. Empty means
	// highlight.DefaultNames.
	Names []string
	// Theme is a raw theme document. It is memoized, never required.
	Theme string
}

// Update is published after every successful request.
type Update struct {
	Language  string
	Version   uint64
	State     incremental.State
	RequestID string
}

type configKey string

type configInput struct {
	language string
	names    []string
}

// Engine is safe for concurrent use. Construct it once per Store.
type Engine struct {
	store       *cache.Store
	decider     *incremental.Engine
	parser      highlight.Parser
	highlighter highlight.Highlighter
	configs     *cachemanager.ReadThroughCache[configKey, *highlight.Configuration, configInput]
	tracer      trace.Tracer
	broker      *pubsub.Broker[Update]

	handlesMu  sync.Mutex
	nextHandle Handle
	handles    map[Handle]highlight.Artifact
}

type Option func(*Engine)

func WithParser(p highlight.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

func WithHighlighter(h highlight.Highlighter) Option {
	return func(e *Engine) { e.highlighter = h }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates an engine over store, defaulting to the chroma parser and
// highlighter and a no-op tracer.
func New(store *cache.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		decider:     incremental.NewEngine(store.Results),
		parser:      highlight.NewChromaParser(),
		highlighter: highlight.NewChromaHighlighter(),
		tracer:      noop.NewTracerProvider().Tracer(tracing.DefaultServiceName),
		broker:      pubsub.NewBroker[Update](),
		handles:     make(map[Handle]highlight.Artifact),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.configs = cachemanager.NewReadThroughCache[configKey, *highlight.Configuration, configInput](
		cachemanager.NewInMemoryCacheManager[configKey, *highlight.Configuration](
			"highlight-configs", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
		func(_ context.Context, in configInput) (*highlight.Configuration, error) {
			return e.highlighter.Configure(in.language, in.names)
		},
		false,
	)
	return e
}

// Highlight returns the highlighting of req.Text, reusing the cached result
// when the decision allows it. A reused result keeps its version; a
// recomputed one gets the previous version plus one.
func (e *Engine) Highlight(ctx context.Context, req Request) (delta highlight.Delta, err error) {
	language := highlight.NormalizeLanguage(req.Language)
	names := req.Names
	if len(names) == 0 {
		names = slices.Clone(highlight.DefaultNames)
	}

	requestID := tracing.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = tracing.NewRequestID()
		ctx = tracing.ContextWithRequestID(ctx, requestID)
	}

	ctx, span := e.tracer.Start(ctx, tracing.SpanHighlightRequest, trace.WithAttributes(
		attribute.String(tracing.AttrLanguage, language),
		attribute.Int(tracing.AttrTextBytes, len(req.Text)),
		attribute.String(tracing.AttrRequestID, requestID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String(tracing.AttrErrorType, fmt.Sprintf("%T", err)))
			log.ErrorErr(log.CatHighlight, "Highlight request failed", err,
				"language", language, "request_id", requestID)
		}
		span.End()
	}()

	decision, err := e.decider.Decide(language, req.Text, names)
	if err != nil {
		return highlight.Delta{}, err
	}
	span.SetAttributes(
		attribute.String(tracing.AttrDecision, decision.State.String()),
		attribute.Float64(tracing.AttrRatio, decision.Ratio),
	)

	if decision.Reusable() {
		span.SetAttributes(attribute.Int64(tracing.AttrVersion, int64(decision.Delta.Version)))
		log.Debug(log.CatHighlight, "Reusing cached result",
			"language", language, "state", decision.State, "version", decision.Delta.Version, "request_id", requestID)
		e.broker.Publish(pubsub.ReusedEvent, Update{
			Language: language, Version: decision.Delta.Version, State: decision.State, RequestID: requestID,
		})
		return *decision.Delta, nil
	}

	cfg, err := e.configs.Get(ctx, configKeyOf(language, names), configInput{language: language, names: names}, cachemanager.NoExpiration)
	if err != nil {
		return highlight.Delta{}, err
	}

	if req.Theme != "" {
		e.store.Themes.GetOrParse(ctx, req.Theme)
	}

	tree, err := e.parse(ctx, language, req.Text)
	if err != nil {
		return highlight.Delta{}, err
	}

	ranges, err := e.classify(ctx, cfg, tree, req.Text)
	if err != nil {
		return highlight.Delta{}, err
	}

	delta = buildDelta(decision, ranges, names, req.Text)
	if err := e.store.Commit(language, tree, req.Text, ranges, delta); err != nil {
		return highlight.Delta{}, err
	}

	span.SetAttributes(
		attribute.Int64(tracing.AttrVersion, int64(delta.Version)),
		attribute.Int(tracing.AttrRanges, len(ranges)),
	)
	log.Debug(log.CatHighlight, "Recomputed highlight",
		"language", language, "state", decision.State, "version", delta.Version,
		"ranges", len(ranges), "request_id", requestID)

	eventType := pubsub.UpdatedEvent
	if decision.Entry == nil {
		eventType = pubsub.CreatedEvent
	}
	e.broker.Publish(eventType, Update{
		Language: language, Version: delta.Version, State: decision.State, RequestID: requestID,
	})

	return delta.Clone(), nil
}

// HighlightJSON is Highlight rendered in the wire form.
func (e *Engine) HighlightJSON(ctx context.Context, req Request) ([]byte, error) {
	delta, err := e.Highlight(ctx, req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(delta)
}

// parse reuses a stored artifact for exactly this text as the parser's hint.
func (e *Engine) parse(ctx context.Context, language, text string) (highlight.Artifact, error) {
	ctx, span := e.tracer.Start(ctx, tracing.SpanParse)
	defer span.End()

	prev, hit, err := e.store.Artifacts.Lookup(text, language)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool(tracing.AttrArtifactHit, hit))

	tree, err := e.parser.Parse(ctx, language, text, prev)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, &highlight.ParseError{Language: language}
	}
	return tree, nil
}

func (e *Engine) classify(ctx context.Context, cfg *highlight.Configuration, tree highlight.Artifact, text string) ([]highlight.Range, error) {
	ctx, span := e.tracer.Start(ctx, tracing.SpanClassify)
	defer span.End()

	ranges, err := e.highlighter.Highlight(ctx, cfg, tree, text)
	if err != nil {
		return nil, fmt.Errorf("highlighting %s: %w", cfg.Language, err)
	}
	span.SetAttributes(attribute.Int(tracing.AttrRanges, len(ranges)))
	return ranges, nil
}

func buildDelta(decision incremental.Decision, ranges []highlight.Range, names []string, text string) highlight.Delta {
	delta := highlight.Delta{
		Ranges:  ranges,
		Names:   slices.Clone(names),
		Version: 1,
	}
	if decision.Entry != nil {
		delta.Version = decision.Entry.Version + 1
	}

	switch {
	case decision.State == incremental.PartialChange:
		delta.ChangedRanges = decision.Changed
		delta.ReusedRanges = diff.ReusedRanges(decision.Changed, len(text))
	case len(text) > 0:
		delta.ChangedRanges = []diff.Span{{Start: 0, End: len(text)}}
	default:
		delta.ChangedRanges = []diff.Span{}
	}
	return delta
}

func configKeyOf(language string, names []string) configKey {
	return configKey(language + "\x00" + strings.Join(names, "\x1f"))
}

// Subscribe streams an Update per successful request until ctx is done.
func (e *Engine) Subscribe(ctx context.Context) <-chan pubsub.Event[Update] {
	return e.broker.Subscribe(ctx)
}

// DroppedUpdates counts updates a subscriber missed because it fell behind.
func (e *Engine) DroppedUpdates() uint64 {
	return e.broker.Dropped()
}

// Close stops event delivery. Highlight keeps working afterwards.
func (e *Engine) Close() {
	e.broker.Close()
}
