package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/serisow/docqa/config"
	"github.com/serisow/docqa/db"
	"github.com/serisow/docqa/orchestrator"
	"github.com/serisow/docqa/pipeline"
	"github.com/serisow/docqa/plugin_registry"
	"github.com/serisow/docqa/services/highlight_service"
	"github.com/serisow/docqa/services/llm_service"
	"github.com/serisow/docqa/services/qa_service"
	"github.com/serisow/docqa/services/rag_service"
	"github.com/serisow/docqa/services/summary_service"
	"github.com/serisow/docqa/services/tts_service"
	"github.com/serisow/docqa/store"
	"github.com/serisow/docqa/store/badger_store"
	"github.com/serisow/docqa/store/postgres_store"
)

// services is everything a command needs, wired from the configuration.
type services struct {
	store        store.Store
	orchestrator *orchestrator.Orchestrator
	executions   *pipeline.ExecutionStore
	narrator     *tts_service.Narrator
}

func (s *services) Close() {
	s.executions.StopCleanup()
	s.store.Close()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return postgres_store.New(pool, logger), nil
	case "badger", "":
		st, err := badger_store.Open(cfg.BadgerPath, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q: must be postgres or badger", cfg.StoreDriver)
	}
}

// registerProviders puts every model and speech backend in the registry
// under its provider name. Constructing a backend makes no network call.
func registerProviders(registry *plugin_registry.PluginRegistry, cfg config.Config, logger *slog.Logger) {
	registry.RegisterLLMService("gemini", llm_service.NewGeminiService(cfg.GeminiAPIURL, cfg.GeminiAPIKey, logger))
	registry.RegisterLLMService("openai", llm_service.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger))
	if local, err := llm_service.NewLangChainService(cfg.LocalLLMURL, cfg.LocalLLMModel, logger); err != nil {
		logger.Warn("Local LLM service unavailable", slog.String("error", err.Error()))
	} else {
		registry.RegisterLLMService("local", local)
	}

	registry.RegisterSpeechService("openai", tts_service.NewOpenAISpeechService(cfg.OpenAIAPIKey, cfg.OpenAITTSVoice, logger))
	registry.RegisterSpeechService("elevenlabs", tts_service.NewElevenLabsService(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, logger))
}

// resolveProviders looks up the configured providers by name.
func resolveProviders(registry *plugin_registry.PluginRegistry, cfg config.Config) (llm_service.LLMService, tts_service.SpeechService, error) {
	llm, ok := registry.GetLLMService(strings.ToLower(cfg.LLMProvider))
	if !ok {
		return nil, nil, fmt.Errorf("unknown LLM provider %q: must be gemini, openai or local", cfg.LLMProvider)
	}
	speech, ok := registry.GetSpeechService(strings.ToLower(cfg.TTSProvider))
	if !ok {
		return nil, nil, fmt.Errorf("unknown TTS provider %q: must be openai or elevenlabs", cfg.TTSProvider)
	}
	return llm, speech, nil
}

// registerServices registers the providers, resolves the configured ones
// and registers every stage type against them.
func registerServices(registry *plugin_registry.PluginRegistry, cfg config.Config, logger *slog.Logger) (*tts_service.Narrator, error) {
	registerProviders(registry, cfg, logger)
	llm, speech, err := resolveProviders(registry, cfg)
	if err != nil {
		return nil, err
	}

	narrator := tts_service.NewNarrator(speech, cfg.StorageDir, logger)
	orchestrator.RegisterSteps(registry, orchestrator.StageServices{
		Extractor:  rag_service.NewDocumentExtractor(logger),
		Summarizer: summary_service.NewSummarizer(llm, logger),
		Narrator:   narrator,
		Answerer:   qa_service.NewGroundedAnswerer(llm, logger),
		Annotator:  highlight_service.NewHighlighter(cfg.StorageDir, logger),
	}, logger)

	logger.Info("Services registered",
		slog.String("llm_provider", cfg.LLMProvider),
		slog.String("tts_provider", cfg.TTSProvider))
	return narrator, nil
}

func bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) (*services, error) {
	registry := plugin_registry.NewPluginRegistry()
	narrator, err := registerServices(registry, cfg, logger)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	executions := pipeline.NewExecutionStore(logger)
	orch, err := orchestrator.New(st, registry, executions, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	executions.StartCleanup(cfg.ExecutionRetention, cfg.ExecutionCleanupInterval)

	return &services{
		store:        st,
		orchestrator: orch,
		executions:   executions,
		narrator:     narrator,
	}, nil
}
