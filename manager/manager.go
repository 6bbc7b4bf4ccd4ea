// Package manager is the playback entry point. A Manager composes a slot
// pool over an engine sink with curve-mapped, persisted bus volumes. Build
// one per process and pass it to the code that plays sounds.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/curve"
	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/pool"
	"github.com/lixenwraith/soundpool/prefs"
	"github.com/lixenwraith/soundpool/sound"
)

// ErrNotReady is returned by every operation before Setup completes
var ErrNotReady = errors.New("sound manager not set up")

// DefaultUpdateInterval paces Run and the service update loop
const DefaultUpdateInterval = 50 * time.Millisecond

// Options configures a Manager
type Options struct {
	Pool pool.Config
	// Mapper converts slider positions to bus levels
	Mapper curve.Mapper
	// UpdateInterval paces the loop started by Start
	UpdateInterval time.Duration
	// Dependencies are service names that must initialize first
	Dependencies []string
}

// DefaultMapper maps sliders onto [SilenceFloor, 0] dB along a log curve
func DefaultMapper() curve.Mapper {
	return curve.NewMapper(curve.Log{Decades: curve.DefaultDecades}, audio.SilenceFloor, 0)
}

func DefaultOptions() Options {
	return Options{
		Pool:           pool.DefaultConfig(),
		Mapper:         DefaultMapper(),
		UpdateInterval: DefaultUpdateInterval,
	}
}

// Manager is the playback facade
type Manager struct {
	sink  audio.Sink
	store prefs.Store
	opts  Options

	mu   sync.RWMutex // guards pool; nil until Setup
	pool *pool.Pool

	loopMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a manager. Nothing is built until Setup.
func New(sink audio.Sink, store prefs.Store, opts Options) *Manager {
	if store == nil {
		store = prefs.NewMemory()
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	return &Manager{sink: sink, store: store, opts: opts}
}

// Setup builds the slot pool and pushes the three persisted bus levels into
// the sink. On failure nothing is kept and Setup may be retried. Calling it
// again after success does nothing.
func (m *Manager) Setup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		return nil
	}
	if m.sink == nil {
		return fmt.Errorf("setup: %w", audio.ErrNoDevice)
	}

	p, err := pool.New(m.opts.Pool, m.sink.NewVoice)
	if err != nil {
		log.ErrorErr(log.CatManager, "Pool construction failed", err)
		return fmt.Errorf("setup pool: %w", err)
	}

	if err := m.loadVolumes(); err != nil {
		p.Close()
		log.ErrorErr(log.CatManager, "Loading bus volumes failed", err)
		return fmt.Errorf("setup volumes: %w", err)
	}

	m.pool = p
	log.Info(log.CatManager, "Sound manager ready", "slots", p.Size())
	return nil
}

// loadVolumes pushes stored engine-domain levels straight to the sink;
// an unset bus gets full volume
func (m *Manager) loadVolumes() error {
	def := m.opts.Mapper.ToOutput(1)
	for _, b := range audio.Buses() {
		v := m.store.GetFloat(b.Param(), def)
		if err := m.sink.SetBusParameter(b.Param(), v); err != nil {
			return fmt.Errorf("%s: %w", b, err)
		}
	}
	return nil
}

// ReloadVolumes re-reads the store into the sink, for stores edited
// outside the process
func (m *Manager) ReloadVolumes() error {
	if _, err := m.ready(); err != nil {
		return err
	}
	return m.loadVolumes()
}

func (m *Manager) ready() (*pool.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pool == nil {
		return nil, ErrNotReady
	}
	return m.pool, nil
}

// Play starts d on bus, master when omitted. When no slot is free the
// sound is dropped: the returned handle is a no-op and the error wraps
// pool.ErrPoolExhausted.
func (m *Manager) Play(d sound.Descriptor, bus ...audio.Bus) (Handle, error) {
	p, err := m.ready()
	if err != nil {
		return Handle{Sound: d.ID, Dropped: true}, err
	}

	b := audio.BusMaster
	if len(bus) > 0 {
		b = bus[0]
	}

	lease, err := p.Play(d, b)
	if err != nil {
		if errors.Is(err, pool.ErrPoolExhausted) {
			log.Debug(log.CatManager, "Sound dropped", "sound", d.ID, "bus", b)
		} else {
			log.ErrorErr(log.CatManager, "Play failed", err, "sound", d.ID, "bus", b)
		}
		return Handle{Sound: d.ID, Dropped: true, lease: lease}, fmt.Errorf("play %s: %w", d.ID, err)
	}

	return Handle{ID: uuid.New(), Sound: d.ID, Bus: b, lease: lease}, nil
}

// Stop force-stops the earliest started sound with this id. Stopping a
// sound that already ended is not an error; the result reports whether
// anything was stopped. Before Setup it fails with ErrNotReady.
func (m *Manager) Stop(id sound.ID) (bool, error) {
	p, err := m.ready()
	if err != nil {
		return false, err
	}
	return p.StopFirst(id), nil
}

// StopAll stops every playing sound and returns how many were stopped
func (m *Manager) StopAll() (int, error) {
	p, err := m.ready()
	if err != nil {
		return 0, err
	}
	return p.StopAll(), nil
}

// ActiveSlots returns the playing slots in start order
func (m *Manager) ActiveSlots() []*pool.Slot {
	p, err := m.ready()
	if err != nil {
		return nil
	}
	return p.ActiveSlots()
}

// GetCurrentPoolSize returns the number of slots constructed, 0 before Setup
func (m *Manager) GetCurrentPoolSize() int {
	p, err := m.ready()
	if err != nil {
		return 0
	}
	return p.Size()
}

// Stats returns pool counters
func (m *Manager) Stats() (pool.Stats, error) {
	p, err := m.ready()
	if err != nil {
		return pool.Stats{}, err
	}
	return p.Stats(), nil
}

// Update applies completed sounds; call once per frame. Returns slots freed.
func (m *Manager) Update() int {
	p, err := m.ready()
	if err != nil {
		return 0
	}
	return p.Update()
}

// Run calls Update every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if _, err := m.ready(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = m.opts.UpdateInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Update()
		}
	}
}

// Close stops the update loop and every sound and frees the pool. The
// manager returns to its pre-Setup state.
func (m *Manager) Close() error {
	m.stopLoop()

	m.mu.Lock()
	p := m.pool
	m.pool = nil
	m.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Close()
}
