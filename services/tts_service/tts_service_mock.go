package tts_service

import (
	"context"
	"sync"
)

type MockSpeechService struct {
	SynthesizeSpeechFunc func(ctx context.Context, text string) ([]byte, error)

	mu    sync.Mutex
	texts []string
}

func (m *MockSpeechService) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.SynthesizeSpeechFunc != nil {
		return m.SynthesizeSpeechFunc(ctx, text)
	}
	return []byte("ID3mock-audio"), nil
}

// Texts returns every text received so far, in call order.
func (m *MockSpeechService) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
