package whatsapp

import (
	"context"
	"sync"
)

// Sent is a message recorded by MockGateway.
type Sent struct {
	Message
	Image bool
}

// MockGateway implements Gateway for testing. It records every message and
// optionally fails sends with a preset error.
type MockGateway struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

// NewMockGateway creates an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SendText records a text message.
func (m *MockGateway) SendText(ctx context.Context, msg Message) error {
	return m.record(Sent{Message: msg})
}

// SendImage records an image message.
func (m *MockGateway) SendImage(ctx context.Context, msg Message) error {
	return m.record(Sent{Message: msg, Image: true})
}

func (m *MockGateway) record(s Sent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
	return m.err
}

// --- Test helpers ---

// FailWith makes subsequent sends return err after recording the message.
func (m *MockGateway) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// LastSent returns the most recently sent message.
// Returns zero value and false if nothing has been sent.
func (m *MockGateway) LastSent() (Sent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Sent{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of messages sent.
func (m *MockGateway) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent messages.
func (m *MockGateway) AllSent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reset forgets recorded messages.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
