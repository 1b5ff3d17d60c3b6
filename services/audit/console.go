package auditsvc

import (
	"log"
	"sync"

	"github.com/darasahq/darasa/core/audit"
)

// consoleSink prints entries to a std logger and retains them in memory so
// Tail still works; for dev and tests.
type consoleSink struct {
	mu      sync.Mutex
	std     *log.Logger
	entries []audit.Entry
}

var _ audit.Sink = (*consoleSink)(nil)

func NewConsoleSink(std *log.Logger) *consoleSink {
	return &consoleSink{std: std}
}

func (s *consoleSink) Append(e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if s.std != nil {
		s.std.Println(e.MarshalLine())
	}
	return nil
}

func (s *consoleSink) Tail(n int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]audit.Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out, nil
}
