package vm

import (
	"sync"
	"time"

	"github.com/swarmlang/swarm/internal/ast"
)

// Storage is an addressable mapping from (resolved) location names to
// values, plus a type index and a lock table. A
// shared-affinity storage is process-wide and guarded by its mutex; a
// local storage belongs to one VM and is only ever touched by its own
// goroutine, so synchronized is false there.
type Storage struct {
	synchronized bool
	mu           sync.Mutex
	values       map[string]Value
	types        map[string]ast.Type
	locks        map[string]int64 // location name -> holder scope id
}

// NewStorage creates a storage backend. synchronized guards every access
// with a mutex; use it for the process-wide shared store.
func NewStorage(synchronized bool) *Storage {
	return &Storage{
		synchronized: synchronized,
		values:       make(map[string]Value),
		types:        make(map[string]ast.Type),
		locks:        make(map[string]int64),
	}
}

func (s *Storage) lock() {
	if s.synchronized {
		s.mu.Lock()
	}
}

func (s *Storage) unlock() {
	if s.synchronized {
		s.mu.Unlock()
	}
}

// Load reads name's value.
func (s *Storage) Load(name string) (Value, bool) {
	s.lock()
	defer s.unlock()
	v, ok := s.values[name]
	return v, ok
}

// Store writes v into name, checking it against the location's typified
// type if one was set.
func (s *Storage) Store(name string, v Value) error {
	s.lock()
	defer s.unlock()
	if t, ok := s.types[name]; ok && !assignableValue(v, t) {
		return Errf(ExInvalidArgumentType, "location %s expects %s, got %s", name, t, v.Type())
	}
	s.values[name] = v
	return nil
}

// Typify sets name's storage-side type so later stores are checked.
func (s *Storage) Typify(name string, t ast.Type) {
	s.lock()
	defer s.unlock()
	s.types[name] = t
}

// Update applies f to name's current value under the storage mutex, so a
// read-modify-write on a synchronized store is atomic (used by the worker
// pool to publish into the deferred-result map).
func (s *Storage) Update(name string, f func(cur Value, ok bool) Value) {
	s.lock()
	defer s.unlock()
	cur, ok := s.values[name]
	s.values[name] = f(cur, ok)
}

// AcquireLock attempts to take name's per-location lock for the scope
// chain whose frame ids are chain (nearest first). It returns
// (true, false) on success, (false, true) if a frame of the same chain
// already holds it (reentrancy: explicitly forbidden, treated as a no-op
// by the caller), and (false, false) if another chain has it.
func (s *Storage) AcquireLock(name string, chain []int64) (acquired, reentrant bool) {
	s.lock()
	defer s.unlock()
	cur, held := s.locks[name]
	if !held {
		s.locks[name] = chain[0]
		return true, false
	}
	for _, id := range chain {
		if cur == id {
			return false, true
		}
	}
	return false, false
}

// ReleaseLock drops name's lock. Releasing an unheld lock is a no-op.
func (s *Storage) ReleaseLock(name string) {
	s.lock()
	defer s.unlock()
	delete(s.locks, name)
}

// AcquireLockRetry retries AcquireLock up to maxRetries times, sleeping
// the cooperative yield interval between attempts, before failing with
// AcquireLockMaxAttemptsExceeded.
func (s *Storage) AcquireLockRetry(name string, chain []int64, maxRetries int, sleep time.Duration) (reentrant bool, err error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		acquired, re := s.AcquireLock(name, chain)
		if acquired {
			return false, nil
		}
		if re {
			return true, nil
		}
		time.Sleep(sleep)
	}
	return false, Errf(ExAcquireLockMaxAttemptsExceeded, "could not acquire lock on %s after %d attempts", name, maxRetries+1)
}

// Clear empties the storage. It fails if any lock is still held.
func (s *Storage) Clear() error {
	s.lock()
	defer s.unlock()
	for name := range s.locks {
		return &ClearLockedReferencesError{Location: name}
	}
	s.values = make(map[string]Value)
	s.types = make(map[string]ast.Type)
	return nil
}

// Snapshot returns a shallow copy of the value map, for cloning a VM into
// a queued job. Scalars copy by value; containers and objects share
// identity, the same reference semantics in-thread copies have.
func (s *Storage) Snapshot() map[string]Value {
	s.lock()
	defer s.unlock()
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Restore replaces the value map with snap (used on job VMs).
func (s *Storage) Restore(snap map[string]Value) {
	s.lock()
	defer s.unlock()
	s.values = snap
}
