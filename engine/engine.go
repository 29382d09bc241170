// Package engine orchestrates the agent loop: it loads conversation state,
// drives the generation model, dispatches tool calls sequentially, checkpoints
// after every state mutation and streams typed events to the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pablo-lozano-martin/genesis-sub004/checkpoint"
	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/export"
	"github.com/pablo-lozano-martin/genesis-sub004/field"
	"github.com/pablo-lozano-martin/genesis-sub004/logging"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
	"github.com/pablo-lozano-martin/genesis-sub004/retrieval"
	"github.com/pablo-lozano-martin/genesis-sub004/stream"
	"github.com/pablo-lozano-martin/genesis-sub004/tool"
)

// ErrSessionBusy is returned when a run is started for a session that already
// has one in flight. Checkpoint chains are linear; two concurrent runs for the
// same session would fork the lineage or silently drop a checkpoint.
var ErrSessionBusy = errors.New("session already has a run in flight")

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Checkpoints persists conversation state. Defaults to in-memory.
	Checkpoints core.CheckpointStore
	// Vectors backs the search tool. Defaults to in-memory with a
	// deterministic hash embedder.
	Vectors core.VectorStore
	// Exports receives finished onboarding records. Defaults to in-memory.
	Exports core.ExportSink
	// Fields is the onboarding field registry. Defaults to the built-in set.
	Fields *field.Registry
	// Tools overrides the tool registry. Defaults to read/write/search/export.
	Tools *tool.Registry
	// Instructions is the system prompt. Defaults to the onboarding prompt.
	Instructions string
	// MaxIterations bounds reasoning cycles per run.
	MaxIterations int
	// EventBufferSize sets channel buffering between the loop and the caller.
	EventBufferSize int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// WithCheckpoints overrides the checkpoint store.
func WithCheckpoints(s core.CheckpointStore) func(o *Options) {
	return func(o *Options) { o.Checkpoints = s }
}

// WithVectors overrides the vector store backing the search tool.
func WithVectors(s core.VectorStore) func(o *Options) {
	return func(o *Options) { o.Vectors = s }
}

// WithExports overrides the export sink.
func WithExports(s core.ExportSink) func(o *Options) {
	return func(o *Options) { o.Exports = s }
}

// WithFields overrides the field registry.
func WithFields(r *field.Registry) func(o *Options) {
	return func(o *Options) { o.Fields = r }
}

// WithTools overrides the tool registry.
func WithTools(r *tool.Registry) func(o *Options) {
	return func(o *Options) { o.Tools = r }
}

// WithInstructions overrides the system prompt.
func WithInstructions(s string) func(o *Options) {
	return func(o *Options) { o.Instructions = s }
}

// WithMaxIterations bounds reasoning cycles per run.
func WithMaxIterations(n int) func(o *Options) {
	return func(o *Options) { o.MaxIterations = n }
}

// WithEventBufferSize sets channel buffering between loop and caller.
func WithEventBufferSize(n int) func(o *Options) {
	return func(o *Options) { o.EventBufferSize = n }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Engine coordinates agent runs. Public methods are safe for concurrent use;
// runs for different sessions execute fully concurrently while a second run
// for the same session is rejected with ErrSessionBusy.
type Engine struct {
	generator model.Model

	checkpoints  core.CheckpointStore
	vectors      core.VectorStore
	exports      core.ExportSink
	fields       *field.Registry
	tools        *tool.Registry
	instructions string

	maxIterations   int
	eventBufferSize int
	logger          logging.Logger

	mu     sync.Mutex
	active map[string]struct{} // session ids with a run in flight
}

// New constructs an Engine around a generation model with optional overrides.
// All collaborators have in-memory defaults suitable for development and
// tests.
func New(generator model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Checkpoints:     checkpoint.NewInMemoryStore(),
		Vectors:         retrieval.NewMemoryStore(retrieval.NewHashEmbedder(0)),
		Exports:         export.NewMemorySink(),
		Fields:          field.Default(),
		Instructions:    DefaultInstructions,
		MaxIterations:   10,
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry(
			tool.NewReadTool(),
			tool.NewWriteTool(),
			tool.NewSearchTool(3),
			tool.NewExportTool(),
		)
	}

	return &Engine{
		generator:       generator,
		checkpoints:     opts.Checkpoints,
		vectors:         opts.Vectors,
		exports:         opts.Exports,
		fields:          opts.Fields,
		tools:           opts.Tools,
		instructions:    opts.Instructions,
		maxIterations:   opts.MaxIterations,
		eventBufferSize: opts.EventBufferSize,
		logger:          opts.Logger,
		active:          make(map[string]struct{}),
	}
}

// Run starts an asynchronous agent run for one inbound utterance. It returns
// the run id, the ordered client event stream and an error channel that
// receives at most one terminal error. The caller must have verified that the
// session belongs to ownerID before calling.
func (e *Engine) Run(
	ctx context.Context,
	sessionID string,
	ownerID string,
	text string,
) (string, <-chan stream.Event, <-chan error, error) {
	if err := e.acquire(sessionID); err != nil {
		return "", nil, nil, err
	}

	state, err := e.checkpoints.Load(sessionID)
	if err != nil {
		e.release(sessionID)
		return "", nil, nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if state.OwnerID == "" {
		state.OwnerID = ownerID
	}

	runID := core.NewID()
	steps := make(chan stream.Step, e.eventBufferSize)
	errorsCh := make(chan error, 1)
	eventsCh := stream.Translate(ctx, runID, steps, e.eventBufferSize)

	go func() {
		defer func() {
			close(steps)
			close(errorsCh)
			e.release(sessionID)
		}()
		e.run(ctx, runID, state, text, steps, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync executes a run to completion and returns all emitted events. It is
// a convenience wrapper for request-response callers that do not stream.
func (e *Engine) RunSync(
	ctx context.Context,
	sessionID string,
	ownerID string,
	text string,
) ([]stream.Event, error) {
	_, eventsCh, errorsCh, err := e.Run(ctx, sessionID, ownerID, text)
	if err != nil {
		return nil, err
	}

	var events []stream.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}
	if err, ok := <-errorsCh; ok && err != nil {
		return events, err
	}
	return events, nil
}

func (e *Engine) acquire(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.active[sessionID]; busy {
		return ErrSessionBusy
	}
	e.active[sessionID] = struct{}{}
	return nil
}

func (e *Engine) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, sessionID)
}
