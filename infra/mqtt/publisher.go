package mqtt

import (
	"fmt"
	"sync"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	coremqtt "github.com/kilianp07/resident-scheduler/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records published messages in memory. Used in tests.
type MockPublisher struct {
	States  []coremetrics.StateEvent
	Results map[int]any
	Replies map[string]any
	// Fail makes every publish return an error.
	Fail bool
	mu   sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Results: make(map[int]any),
		Replies: make(map[string]any),
	}
}

func (m *MockPublisher) PublishState(ev coremetrics.StateEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.States = append(m.States, ev)
	return nil
}

func (m *MockPublisher) PublishResult(block int, report any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Results[block] = report
	return nil
}

func (m *MockPublisher) PublishReply(requestID string, report any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Replies[requestID] = report
	return nil
}

// StateCount returns the number of recorded state events.
func (m *MockPublisher) StateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.States)
}

// ReplyCount returns the number of answered requests.
func (m *MockPublisher) ReplyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Replies)
}
