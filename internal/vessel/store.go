package vessel

import (
	"sync"

	"github.com/rickgao/vessel-tracker/internal/model"
)

// Store is the per-vessel state table.
//
// Single writer: Apply and Record are called only from the message
// processor, one message at a time. The lock exists for concurrent
// readers; readers may see vessel A updated before vessel B but never a
// torn VesselState.
type Store struct {
	mu     sync.RWMutex
	order  []string // Roster insertion order
	states map[string]*model.VesselState
}

// NewStore builds one state per ref with no latest update and a zero count.
// Duplicate ids keep the first ref.
func NewStore(refs []model.VesselRef) *Store {
	s := &Store{
		order:  make([]string, 0, len(refs)),
		states: make(map[string]*model.VesselState, len(refs)),
	}
	for _, ref := range refs {
		if _, exists := s.states[ref.ID]; exists {
			continue
		}
		s.order = append(s.order, ref.ID)
		s.states[ref.ID] = &model.VesselState{Ref: ref}
	}
	return s
}

// IsTracked reports whether id is in the roster.
func (s *Store) IsTracked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.states[id]
	return ok
}

// IDs returns the tracked identifiers in roster order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Len returns the number of tracked vessels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Ref returns the roster entry for id.
func (s *Store) Ref(id string) (model.VesselRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return model.VesselRef{}, false
	}
	return st.Ref, true
}

// Apply installs update as the latest state for id and increments its
// message count. Untracked ids are ignored.
func (s *Store) Apply(id string, update model.TelemetryUpdate) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return 0, false
	}
	st.Latest = &update
	st.MessageCount++
	return st.MessageCount, true
}

// Record increments the message count for id without touching its latest
// update. Used for reports that are counted but carry no usable position.
func (s *Store) Record(id string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return 0, false
	}
	st.MessageCount++
	return st.MessageCount, true
}

// Get returns a copy of the state for id.
func (s *Store) Get(id string) (model.VesselState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return model.VesselState{}, false
	}
	return copyState(st), true
}

// Snapshot returns copies of all states in roster order.
func (s *Store) Snapshot() []model.VesselState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.VesselState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyState(s.states[id]))
	}
	return out
}

func copyState(st *model.VesselState) model.VesselState {
	c := *st
	if st.Latest != nil {
		latest := *st.Latest
		c.Latest = &latest
	}
	return c
}
