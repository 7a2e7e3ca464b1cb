package chatbot

import (
	"context"
	"sync"
)

// FakeProvider returns a canned reply and records what it was sent.
type FakeProvider struct {
	ProviderName string
	ResponseText string
	Error        error

	mu    sync.Mutex
	calls [][]Message
}

func NewFake(name, response string) *FakeProvider {
	return &FakeProvider{ProviderName: name, ResponseText: response}
}

func (f *FakeProvider) Name() string { return f.ProviderName }

func (f *FakeProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]Message(nil), messages...))
	f.mu.Unlock()

	if f.Error != nil {
		return "", f.Error
	}
	return f.ResponseText, nil
}

// Calls returns the conversations received so far.
func (f *FakeProvider) Calls() [][]Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]Message(nil), f.calls...)
}

// FakeFactory serves the same provider for every selection.
func FakeFactory(p Provider) Factory {
	return func(ProviderID, string) Provider { return p }
}
