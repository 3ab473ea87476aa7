package updates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
)

// StateKey is the transient the cycle state is persisted under.
const StateKey = "update_plugins"

// CycleState is the shared record of one update check cycle, keyed by
// product basename. Several checkers may write into the same state.
type CycleState struct {
	LastChecked time.Time                      `json:"last_checked"`
	Checked     map[string]string              `json:"checked"`  // basename -> installed version
	Response    map[string]*domain.VersionInfo `json:"response"` // basename -> available update

	// CacheKeys records the version cache key each answer was fetched
	// under. A license key or channel change makes the entry stale.
	CacheKeys map[string]string `json:"cache_keys"` // basename -> cache key
}

// NewCycleState returns an empty state.
func NewCycleState() *CycleState {
	return &CycleState{
		Checked:   make(map[string]string),
		Response:  make(map[string]*domain.VersionInfo),
		CacheKeys: make(map[string]string),
	}
}

// Clone returns a copy whose maps can be modified independently.
// VersionInfo values are shared.
func (s *CycleState) Clone() *CycleState {
	out := NewCycleState()
	if s == nil {
		return out
	}
	out.LastChecked = s.LastChecked
	for k, v := range s.Checked {
		out.Checked[k] = v
	}
	for k, v := range s.Response {
		out.Response[k] = v
	}
	for k, v := range s.CacheKeys {
		out.CacheKeys[k] = v
	}
	return out
}

// Transients is the expiring key/value store the state lives in.
type Transients interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// StateStore loads and saves the cycle state.
type StateStore struct {
	store Transients
	ttl   time.Duration
}

// NewStateStore creates a state store keeping the state for ttl.
func NewStateStore(store Transients, ttl time.Duration) *StateStore {
	return &StateStore{store: store, ttl: ttl}
}

// Load returns the persisted state, or an empty one if none is stored.
func (s *StateStore) Load(ctx context.Context) (*CycleState, error) {
	data, ok, err := s.store.Get(ctx, StateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load update state: %w", err)
	}
	if !ok {
		return NewCycleState(), nil
	}

	state := NewCycleState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to decode update state: %w", err)
	}
	if state.Checked == nil {
		state.Checked = make(map[string]string)
	}
	if state.Response == nil {
		state.Response = make(map[string]*domain.VersionInfo)
	}
	if state.CacheKeys == nil {
		state.CacheKeys = make(map[string]string)
	}
	return state, nil
}

// Save persists state.
func (s *StateStore) Save(ctx context.Context, state *CycleState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode update state: %w", err)
	}
	if err := s.store.Set(ctx, StateKey, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save update state: %w", err)
	}
	return nil
}

// Reset drops the persisted state so the next cycle starts fresh.
func (s *StateStore) Reset(ctx context.Context) error {
	return s.store.Delete(ctx, StateKey)
}
