// Package genesis provides a high-level façade over the agent engine and its
// collaborators (checkpoints, retrieval, tools, export and logging) enabling
// rapid construction of a conversational onboarding agent. Most applications
// interact with this package by:
//  1. Creating an Agent via New() from a config (optionally overriding the
//     default stores or model)
//  2. Seeding the knowledge base with AddDocuments
//  3. Starting runs asynchronously (Run) or synchronously (RunSync)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and tests;
// production deployments typically configure SQLite persistence and a real
// generation provider.
package genesis

import (
	"context"
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/pablo-lozano-martin/genesis-sub004/checkpoint"
	"github.com/pablo-lozano-martin/genesis-sub004/config"
	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/engine"
	"github.com/pablo-lozano-martin/genesis-sub004/export"
	"github.com/pablo-lozano-martin/genesis-sub004/logging"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
	"github.com/pablo-lozano-martin/genesis-sub004/model/anthropic"
	"github.com/pablo-lozano-martin/genesis-sub004/model/openai"
	"github.com/pablo-lozano-martin/genesis-sub004/retrieval"
	"github.com/pablo-lozano-martin/genesis-sub004/stream"
)

// Options overrides the collaborators derived from the config.
type Options struct {
	// Model overrides the generation model built from cfg.Model.
	Model model.Model
	// Checkpoints overrides the checkpoint store built from cfg.Storage.
	Checkpoints core.CheckpointStore
	// Vectors overrides the vector store built from cfg.Storage.
	Vectors core.VectorStore
	// Exports overrides the export sink built from cfg.Export.
	Exports core.ExportSink
	// Logger overrides the logger built from cfg.Logging.
	Logger logging.Logger
}

// Agent is the high-level façade aggregating the engine and its stores.
type Agent struct {
	cfg     *config.Config
	engine  *engine.Engine
	vectors core.VectorStore
	logger  logging.Logger
	closers []func() error
}

// New wires an Agent from the config. Any unset collaborator is built from
// the config: SQLite stores when paths are configured, in-memory otherwise;
// the generation model from the configured provider.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Agent{cfg: cfg}

	a.logger = opts.Logger
	if a.logger == nil {
		a.logger = logging.NewSlogLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, false)
	}

	generator := opts.Model
	if generator == nil {
		var err error
		generator, err = buildModel(cfg)
		if err != nil {
			return nil, err
		}
	}

	checkpoints := opts.Checkpoints
	if checkpoints == nil {
		if path := cfg.Storage.CheckpointPath; path != "" {
			store, err := checkpoint.NewSQLiteStore(path)
			if err != nil {
				return nil, fmt.Errorf("open checkpoint store: %w", err)
			}
			a.closers = append(a.closers, store.Close)
			checkpoints = store
		} else {
			checkpoints = checkpoint.NewInMemoryStore()
		}
	}

	vectors := opts.Vectors
	if vectors == nil {
		embedder := buildEmbedder(cfg)
		if path := cfg.Storage.VectorPath; path != "" {
			store, err := retrieval.NewSQLiteStore(path, embedder)
			if err != nil {
				return nil, fmt.Errorf("open vector store: %w", err)
			}
			a.closers = append(a.closers, store.Close)
			vectors = store
		} else {
			vectors = retrieval.NewMemoryStore(embedder)
		}
	}
	a.vectors = vectors

	exports := opts.Exports
	if exports == nil {
		if dir := cfg.Export.Dir; dir != "" {
			sink, err := export.NewFileSink(dir)
			if err != nil {
				return nil, err
			}
			exports = sink
		} else {
			exports = export.NewMemorySink()
		}
	}

	a.engine = engine.New(generator,
		engine.WithCheckpoints(checkpoints),
		engine.WithVectors(vectors),
		engine.WithExports(exports),
		engine.WithMaxIterations(cfg.Engine.MaxIterations),
		engine.WithEventBufferSize(cfg.Engine.EventBufferSize),
		engine.WithLogger(a.logger),
	)

	return a, nil
}

// Run starts an asynchronous agent run returning event and error channels.
func (a *Agent) Run(
	ctx context.Context,
	sessionID string,
	ownerID string,
	text string,
) (string, <-chan stream.Event, <-chan error, error) {
	return a.engine.Run(ctx, sessionID, ownerID, text)
}

// RunSync executes a run to completion and returns all emitted events.
func (a *Agent) RunSync(
	ctx context.Context,
	sessionID string,
	ownerID string,
	text string,
) ([]stream.Event, error) {
	return a.engine.RunSync(ctx, sessionID, ownerID, text)
}

// AddDocuments seeds the knowledge base backing the search tool.
func (a *Agent) AddDocuments(ctx context.Context, docs ...core.Document) ([]string, error) {
	return a.vectors.Upsert(ctx, docs)
}

// Engine exposes the underlying engine for advanced use.
func (a *Agent) Engine() *engine.Engine { return a.engine }

// Close releases any persistent stores the Agent opened itself. Stores passed
// in through Options stay the caller's responsibility.
func (a *Agent) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Model.Name
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = int64(cfg.Model.MaxTokens)
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(cfg.Model.Name)
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = int64(cfg.Model.MaxTokens)
		}), nil
	case config.ProviderMock:
		return model.NewMockModel(cfg.Model.Name), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildEmbedder(cfg *config.Config) retrieval.Embedder {
	if cfg.Model.Provider == config.ProviderMock {
		return retrieval.NewHashEmbedder(0)
	}
	return retrieval.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), cfg.Retrieval.EmbeddingModel)
}
