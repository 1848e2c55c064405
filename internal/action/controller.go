package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrControllerUnavailable is returned when a controller call fails or
	// does not answer in time.
	ErrControllerUnavailable = errors.New("controller unavailable")

	// ErrDispatchTimeout is returned when a controller call exceeds the
	// dispatch timeout. It wraps ErrControllerUnavailable.
	ErrDispatchTimeout = fmt.Errorf("dispatch timed out: %w", ErrControllerUnavailable)

	// ErrUnsupportedCommand is returned for a command kind the dispatcher
	// cannot execute.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// VolumeController reads and writes a scalar output volume in [0,1].
type VolumeController interface {
	Level(ctx context.Context) (float64, error)
	SetLevel(ctx context.Context, level float64) error
}

// KeyPresser simulates a single key press, such as "space".
type KeyPresser interface {
	Press(ctx context.Context, key string) error
}

// MemoryController is an in-memory VolumeController and KeyPresser. It
// records every call and can be told to fail or stall.
type MemoryController struct {
	mu      sync.Mutex
	level   float64
	sets    []float64
	presses []string
	err     error
	delay   time.Duration
}

// NewMemoryController returns a controller starting at level.
func NewMemoryController(level float64) *MemoryController {
	return &MemoryController{level: Clamp(level)}
}

// SetError makes every subsequent call fail with err. Nil clears it.
func (m *MemoryController) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes every subsequent call block for d or until its context ends.
func (m *MemoryController) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MemoryController) wait(ctx context.Context) error {
	m.mu.Lock()
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Level returns the current level.
func (m *MemoryController) Level(ctx context.Context) (float64, error) {
	if err := m.wait(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, nil
}

// SetLevel stores level and records the call.
func (m *MemoryController) SetLevel(ctx context.Context, level float64) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
	m.sets = append(m.sets, level)
	return nil
}

// Press records a key press.
func (m *MemoryController) Press(ctx context.Context, key string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presses = append(m.presses, key)
	return nil
}

// Current returns the stored level without side effects.
func (m *MemoryController) Current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Sets returns every level passed to SetLevel.
func (m *MemoryController) Sets() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.sets...)
}

// Presses returns every key passed to Press.
func (m *MemoryController) Presses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.presses...)
}
