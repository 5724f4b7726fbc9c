package validation

import (
	"context"
	"sync"

	"github.com/sageql/sage/pkg/oracle"
)

// scriptedOracle replays canned completions in order. A nil script with
// a non-nil err simulates a transport failure on every call.
type scriptedOracle struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	lastMsgs  []oracle.Message
}

func (s *scriptedOracle) Complete(ctx context.Context, messages []oracle.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastMsgs = messages
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
