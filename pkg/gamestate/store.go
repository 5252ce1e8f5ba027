package gamestate

import (
	"sync"
)

const (
	// MaxLogEntries is the maximum number of retained log entries per log
	MaxLogEntries = 100
)

// ChangeCallback is invoked after a batch of public-state mutations.
// Callbacks run in registration order and cannot cancel each other.
type ChangeCallback func(public *PublicState)

// Store holds the public/master state pair for one room. Each room owns
// exactly one Store; it shares the room's lifetime.
//
// The getters return deep copies, so readers never alias live state and
// can marshal or traverse their snapshot without holding any lock. All
// mutations go through UpdatePublic, ApplyPatch, or the log helpers,
// which run under the store's write lock and notify on their own.
type Store struct {
	lock      sync.RWMutex
	state     FullState
	callbacks []ChangeCallback
}

// NewStore creates a Store with the given initial state.
func NewStore(initial FullState) *Store {
	if initial.Public == nil {
		initial.Public = &PublicState{}
	}
	if initial.Master == nil {
		initial.Master = &MasterState{}
	}
	return &Store{state: initial}
}

// GetPublicState returns a snapshot of the public state shared by all
// room members.
func (s *Store) GetPublicState() *PublicState {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Public.Clone()
}

// GetMasterState returns a snapshot of the master-only state.
func (s *Store) GetMasterState() *MasterState {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Master.Clone()
}

// GetFullState returns a snapshot of both halves of the state.
func (s *Store) GetFullState() FullState {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return FullState{
		Public: s.state.Public.Clone(),
		Master: s.state.Master.Clone(),
	}
}

// UpdatePublic runs fn against the live public state under the store's
// write lock, then notifies change callbacks once. fn must not call back
// into the store.
func (s *Store) UpdatePublic(fn func(public *PublicState)) {
	s.lock.Lock()
	fn(s.state.Public)
	s.lock.Unlock()

	s.NotifyChanged()
}

// Patch is a partial state update. Nil halves are left untouched; a
// non-nil half replaces its counterpart wholesale. This is a shallow
// merge: nested values are not merged field by field. The store takes
// ownership of the patch halves.
type Patch struct {
	Public *PublicState
	Master *MasterState
}

// ApplyPatch shallow-merges a patch into the current state. A patch that
// touches the public half notifies registered change callbacks.
func (s *Store) ApplyPatch(patch Patch) {
	s.lock.Lock()
	if patch.Public != nil {
		s.state.Public = patch.Public
	}
	if patch.Master != nil {
		s.state.Master = patch.Master
	}
	s.lock.Unlock()

	if patch.Public != nil {
		s.NotifyChanged()
	}
}

// OnPublicChange registers a callback invoked once per observed batch of
// public-state mutations. Used to drive broadcast to connected members.
func (s *Store) OnPublicChange(fn ChangeCallback) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// NotifyChanged tells the store a visible batch of public-state changes
// is complete. Callbacks receive a snapshot and run outside the lock.
func (s *Store) NotifyChanged() {
	s.lock.RLock()
	public := s.state.Public.Clone()
	callbacks := make([]ChangeCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.lock.RUnlock()

	for _, fn := range callbacks {
		fn(public)
	}
}

// AppendPublicLog appends an entry to the public log, trimming to the
// retention cap, and notifies change callbacks.
func (s *Store) AppendPublicLog(message string) LogEntry {
	var entry LogEntry
	s.UpdatePublic(func(public *PublicState) {
		entry = public.AppendLog(message)
	})
	return entry
}

// AppendMasterLog appends an entry to the master-only log, trimming to
// the retention cap. Master-only mutations do not notify public change
// callbacks.
func (s *Store) AppendMasterLog(message string) LogEntry {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state.Master.AppendLog(message)
}
