// Package history holds the bounded, insertion-ordered tick buffer the
// classifier computes window statistics over.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/rewired-gh/oisentry/internal/models"
	"github.com/samber/lo"
)

// Field selects one exchange's series from the buffer.
type Field int

const (
	Binance Field = iota
	Bybit
)

func (f Field) String() string {
	if f == Bybit {
		return "bybit"
	}
	return "binance"
}

func (f Field) of(t models.Tick) float64 {
	if f == Bybit {
		return t.Bybit
	}
	return t.Binance
}

// Store is a FIFO of at most keepPoints ticks, oldest first.
// It is owned by a single goroutine and is not safe for concurrent use.
type Store struct {
	keepPoints int
	ticks      []models.Tick
}

// New returns an empty store. keepPoints below 1 is treated as 1.
func New(keepPoints int) *Store {
	return &Store{keepPoints: max(keepPoints, 1)}
}

// Restore builds a store from previously persisted ticks, keeping only the
// most recent keepPoints of them.
func Restore(keepPoints int, ticks []models.Tick) *Store {
	s := New(keepPoints)
	if n := len(ticks); n > s.keepPoints {
		ticks = ticks[n-s.keepPoints:]
	}
	s.ticks = append(make([]models.Tick, 0, len(ticks)), ticks...)
	return s
}

// Append adds a tick at the end and evicts from the front while the buffer
// exceeds keepPoints.
func (s *Store) Append(t models.Tick) {
	s.ticks = append(s.ticks, t)
	if over := len(s.ticks) - s.keepPoints; over > 0 {
		// Reslicing keeps Append O(1); the next growth copies only live ticks.
		s.ticks = s.ticks[over:]
	}
}

// Trim drops the oldest ticks until at most n remain.
func (s *Store) Trim(n int) {
	n = max(n, 0)
	if over := len(s.ticks) - n; over > 0 {
		s.ticks = append([]models.Tick(nil), s.ticks[over:]...)
	}
}

func (s *Store) Len() int { return len(s.ticks) }

func (s *Store) KeepPoints() int { return s.keepPoints }

// Last returns the newest tick, if any.
func (s *Store) Last() (models.Tick, bool) {
	if len(s.ticks) == 0 {
		return models.Tick{}, false
	}
	return s.ticks[len(s.ticks)-1], true
}

// Records returns a copy of the buffer, oldest first.
func (s *Store) Records() []models.Tick {
	return append([]models.Tick{}, s.ticks...)
}

// WindowValues returns one field's values across all retained ticks, in order.
func (s *Store) WindowValues(field Field) []float64 {
	return lo.Map(s.ticks, func(t models.Tick, _ int) float64 {
		return field.of(t)
	})
}

// Save encodes the store as an indented state document.
func (s *Store) Save() ([]byte, error) {
	return Encode(s.ticks)
}

// Load decodes a state document into a store bounded by keepPoints.
func Load(data []byte, keepPoints int) (*Store, error) {
	ticks, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Restore(keepPoints, ticks), nil
}

// Encode renders ticks as the human-readable state document.
func Encode(ticks []models.Tick) ([]byte, error) {
	if ticks == nil {
		ticks = []models.Tick{}
	}
	data, err := json.MarshalIndent(models.State{History: ticks}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

// Decode parses a state document. A document without a history key yields
// no ticks.
func Decode(data []byte) ([]models.Tick, error) {
	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	for i := range state.History {
		if err := state.History[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid tick at index %d: %w", i, err)
		}
	}
	return state.History, nil
}
