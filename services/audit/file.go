package auditsvc

import (
	"bufio"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/audit"
)

// fileSink appends audit entries to a flat log file, one line per entry.
// Appends are serialized in-process; cross-process writers need external
// locking.
type fileSink struct {
	mu   sync.Mutex
	path string
}

var _ audit.Sink = (*fileSink)(nil)

func NewFileSink(conf *core.Config) *fileSink {
	return &fileSink{path: conf.Audit.LogPath}
}

func (s *fileSink) Append(e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening audit log")
	}
	defer f.Close()

	if _, err = f.WriteString(e.MarshalLine() + "\n"); err != nil {
		return errors.Wrap(err, "appending audit entry")
	}
	return nil
}

// Tail returns up to n most recent entries, oldest first. Malformed lines
// are skipped, not errors; a partially written tail must not break readers.
func (s *fileSink) Tail(n int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "opening audit log")
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading audit log")
	}

	entries := make([]audit.Entry, 0, n)
	for i := len(lines) - 1; i >= 0 && len(entries) < n; i-- {
		entry, err := audit.ParseLine(lines[i])
		if err != nil {
			continue // skip-and-continue: tolerate malformed lines
		}
		entries = append(entries, entry)
	}

	// newest-last
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
