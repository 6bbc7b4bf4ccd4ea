package manager

import (
	"context"

	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/service"
)

// ServiceName is the hub name of the sound manager
const ServiceName = "sound"

// lifecycle runs a Manager under a service.Hub
type lifecycle struct {
	m *Manager
}

var _ service.Service = lifecycle{}

// Service returns the manager's service.Service adapter: Init runs Setup,
// Start launches the update loop, Stop closes the manager
func (m *Manager) Service() service.Service {
	return lifecycle{m: m}
}

func (l lifecycle) Name() string {
	return ServiceName
}

func (l lifecycle) Dependencies() []string {
	return l.m.opts.Dependencies
}

func (l lifecycle) Init(args ...any) error {
	return l.m.Setup()
}

func (l lifecycle) Start() error {
	return l.m.Start()
}

// Stop is idempotent
func (l lifecycle) Stop() error {
	return l.m.Close()
}

// Start launches the update loop so completions are applied without a
// frame loop. Calling it while the loop runs does nothing.
func (m *Manager) Start() error {
	if _, err := m.ready(); err != nil {
		return err
	}

	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.Run(ctx, m.opts.UpdateInterval); err != nil && ctx.Err() == nil {
			log.ErrorErr(log.CatManager, "Update loop stopped", err)
		}
	}()
	return nil
}

func (m *Manager) stopLoop() {
	m.loopMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.loopMu.Unlock()

	if cancel != nil {
		cancel()
		m.wg.Wait()
	}
}
