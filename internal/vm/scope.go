package vm

import (
	"fmt"
	"sync/atomic"

	"github.com/swarmlang/swarm/internal/isa"
)

var nextScopeID int64

// CallRecord ties a call scope back to the call that opened it, for
// return handling and diagnostics.
type CallRecord struct {
	Function string
	ReturnPC int
}

// ScopeFrame is one linked frame of the scope chain:
// an id, an optional parent, the originating call (for call scopes), and a
// shadow map rewriting location names declared in this frame. Entering a
// scope copies no state; resolution walks the chain.
type ScopeFrame struct {
	ID      int64
	Parent  *ScopeFrame
	Call    *CallRecord
	shadows map[string]string
}

// NewRootScope creates the bottom frame of a scope chain.
func NewRootScope() *ScopeFrame {
	return &ScopeFrame{ID: atomic.AddInt64(&nextScopeID, 1), shadows: make(map[string]string)}
}

// NewChild forks a child frame.
func (s *ScopeFrame) NewChild() *ScopeFrame {
	return &ScopeFrame{
		ID:      atomic.AddInt64(&nextScopeID, 1),
		Parent:  s,
		shadows: make(map[string]string),
	}
}

// NewCall forks a child frame recording the originating call.
func (s *ScopeFrame) NewCall(c *CallRecord) *ScopeFrame {
	f := s.NewChild()
	f.Call = c
	return f
}

// Shadow declares l in this frame, creating the rewritten name l@id that
// later Map calls resolve to. Re-shadowing an already-shadowed name in the
// same frame is a no-op (ScopeOf is idempotent per region).
func (s *ScopeFrame) Shadow(l isa.Location) string {
	key := l.String()
	if name, ok := s.shadows[key]; ok {
		return name
	}
	name := fmt.Sprintf("%s@%d", l.Name, s.ID)
	s.shadows[key] = name
	return name
}

// Map resolves l to its nearest shadow up the chain, or its own name if no
// frame shadows it.
func (s *ScopeFrame) Map(l isa.Location) string {
	key := l.String()
	for f := s; f != nil; f = f.Parent {
		if name, ok := f.shadows[key]; ok {
			return name
		}
	}
	return l.Name
}

// InCall reports whether any frame up the chain is a call scope, and
// returns the nearest call record.
func (s *ScopeFrame) InCall() (*CallRecord, bool) {
	for f := s; f != nil; f = f.Parent {
		if f.Call != nil {
			return f.Call, true
		}
	}
	return nil, false
}
