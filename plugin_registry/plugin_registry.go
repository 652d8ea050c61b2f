package plugin_registry

import (
	"fmt"
	"sync"

	"github.com/serisow/docqa/pipeline"
	"github.com/serisow/docqa/pipeline/step"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/services/llm_service"
	"github.com/serisow/docqa/services/tts_service"
)

type PluginRegistry struct {
	mu             sync.RWMutex
	stepTypes      map[string]func() step.Step
	llmServices    map[string]llm_service.LLMService
	speechServices map[string]tts_service.SpeechService
}

func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		stepTypes:      make(map[string]func() step.Step),
		llmServices:    make(map[string]llm_service.LLMService),
		speechServices: make(map[string]tts_service.SpeechService),
	}
}

// RegisterStepType registers a new step type
func (pr *PluginRegistry) RegisterStepType(typeName string, factory func() step.Step) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.stepTypes[typeName] = factory
}

// GetStepInstance returns a new instance of a step type
func (pr *PluginRegistry) GetStepInstance(typeName string) (step.Step, error) {
	pr.mu.RLock()
	factory, ok := pr.stepTypes[typeName]
	pr.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown step type: %s", typeName)
	}
	return factory(), nil
}

// RegisterLLMService registers a new LLM service
func (pr *PluginRegistry) RegisterLLMService(name string, service llm_service.LLMService) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.llmServices[name] = service
}

// GetLLMService returns an LLM service by name
func (pr *PluginRegistry) GetLLMService(name string) (llm_service.LLMService, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	service, ok := pr.llmServices[name]
	return service, ok
}

func (pr *PluginRegistry) RegisterSpeechService(name string, service tts_service.SpeechService) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.speechServices[name] = service
}

func (pr *PluginRegistry) GetSpeechService(name string) (tts_service.SpeechService, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	service, ok := pr.speechServices[name]
	return service, ok
}

// BuildPipeline instantiates one stage per step of def, by step type.
func (pr *PluginRegistry) BuildPipeline(def pipeline_type.PipelineDefinition) (*pipeline.Pipeline, error) {
	stages := make([]step.Step, 0, len(def.Steps))
	for _, s := range def.Steps {
		instance, err := pr.GetStepInstance(s.Type)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s, step %s: %w", def.ID, s.ID, err)
		}
		stages = append(stages, instance)
	}
	return pipeline.NewPipeline(def, stages)
}
