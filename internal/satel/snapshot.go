package satel

import (
	"sync"
	"time"
)

// StateEntry is the latest bitmap for one category.
type StateEntry struct {
	Items []int     `json:"items"`
	At    time.Time `json:"at"`
}

// TempReading is the latest temperature for one zone.
type TempReading struct {
	Zone    int       `json:"zone"`
	Celsius float64   `json:"celsius"`
	Valid   bool      `json:"valid"`
	At      time.Time `json:"at"`
}

// Snapshot holds the last known panel state, one slot per category.
// Each inbound fragment replaces its own category and nothing else, so
// an entry-time update never disturbs the armed set.
//
// Thread Safety: all methods are safe for concurrent use.
type Snapshot struct {
	mu     sync.RWMutex
	states map[StatusKind]StateEntry
	temps  map[int]TempReading
}

// NewSnapshot returns an empty snapshot. Categories report absent until
// the first fragment for them arrives.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		states: make(map[StatusKind]StateEntry),
		temps:  make(map[int]TempReading),
	}
}

// Apply folds one fragment into the snapshot. It reports whether the
// stored state changed, which lets callers skip republishing identical
// bitmaps. Result fragments and device info carry no state and never
// change the snapshot.
func (s *Snapshot) Apply(st Status) bool {
	switch st.Kind {
	case StatusResult, StatusDeviceInfo, StatusUnknown:
		return false
	case StatusTemperature:
		s.mu.Lock()
		defer s.mu.Unlock()
		prev, had := s.temps[st.Zone]
		s.temps[st.Zone] = TempReading{Zone: st.Zone, Celsius: st.Temperature, Valid: st.TempValid, At: st.At}
		return !had || prev.Celsius != st.Temperature || prev.Valid != st.TempValid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.states[st.Kind]
	s.states[st.Kind] = StateEntry{Items: append([]int(nil), st.Items...), At: st.At}
	return !had || !equalItems(prev.Items, st.Items)
}

// State returns the latest entry for a category. ok is false when no
// fragment for the category has arrived yet.
func (s *Snapshot) State(kind StatusKind) (StateEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.states[kind]
	if !ok {
		return StateEntry{}, false
	}
	return StateEntry{Items: append([]int(nil), e.Items...), At: e.At}, true
}

// Active reports whether id is set in the category's latest bitmap.
// Unknown categories report false.
func (s *Snapshot) Active(kind StatusKind, id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.states[kind]
	if !ok {
		return false
	}
	for _, it := range e.Items {
		if it == id {
			return true
		}
	}
	return false
}

// AllActive reports whether every id is set in the category's latest
// bitmap. An empty id list reports true once the category is known.
func (s *Snapshot) AllActive(kind StatusKind, ids []int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.states[kind]
	if !ok {
		return false
	}
	set := make(map[int]struct{}, len(e.Items))
	for _, it := range e.Items {
		set[it] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// Temperature returns the latest reading for a zone.
func (s *Snapshot) Temperature(zone int) (TempReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.temps[zone]
	return r, ok
}

// View is a JSON-friendly copy of the whole snapshot.
type View struct {
	States       map[string]StateEntry `json:"states"`
	Temperatures []TempReading         `json:"temperatures"`
}

// Export copies the snapshot for serialization.
func (s *Snapshot) Export() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{States: make(map[string]StateEntry, len(s.states))}
	for kind, e := range s.states {
		v.States[kind.String()] = StateEntry{Items: append([]int(nil), e.Items...), At: e.At}
	}
	v.Temperatures = make([]TempReading, 0, len(s.temps))
	for _, r := range s.temps {
		v.Temperatures = append(v.Temperatures, r)
	}
	return v
}

func equalItems(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
