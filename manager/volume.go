package manager

import (
	"fmt"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/log"
)

// SetVolume maps a slider position in [0,1] onto the bus level, applies it
// to the sink and persists it
func (m *Manager) SetVolume(bus audio.Bus, control float64) error {
	if _, err := m.ready(); err != nil {
		return err
	}
	if !bus.Valid() {
		return fmt.Errorf("%w: %s", audio.ErrUnknownBus, bus)
	}

	out := m.opts.Mapper.ToOutput(control)
	if err := m.sink.SetBusParameter(bus.Param(), out); err != nil {
		return fmt.Errorf("set %s volume: %w", bus, err)
	}
	if err := m.store.SetFloat(bus.Param(), out); err != nil {
		log.ErrorErr(log.CatPrefs, "Persisting volume failed", err, "bus", bus)
		return fmt.Errorf("persist %s volume: %w", bus, err)
	}

	log.Debug(log.CatManager, "Volume set", "bus", bus, "control", control, "level", out)
	return nil
}

// GetVolume returns the slider position of a bus. The level is read from
// the sink, then the store, then full volume.
func (m *Manager) GetVolume(bus audio.Bus) (float64, error) {
	if _, err := m.ready(); err != nil {
		return 0, err
	}
	if !bus.Valid() {
		return 0, fmt.Errorf("%w: %s", audio.ErrUnknownBus, bus)
	}

	out, ok := m.sink.GetBusParameter(bus.Param())
	if !ok {
		out = m.store.GetFloat(bus.Param(), m.opts.Mapper.ToOutput(1))
	}
	control, err := m.opts.Mapper.ToControl(out)
	if err != nil {
		return 0, fmt.Errorf("%s volume: %w", bus, err)
	}
	return control, nil
}

// SetGlobalVolume sets the master bus
func (m *Manager) SetGlobalVolume(control float64) error {
	return m.SetVolume(audio.BusMaster, control)
}

// GetGlobalVolume reads the master bus
func (m *Manager) GetGlobalVolume() (float64, error) {
	return m.GetVolume(audio.BusMaster)
}

func (m *Manager) SetMusicVolume(control float64) error {
	return m.SetVolume(audio.BusMusic, control)
}

func (m *Manager) GetMusicVolume() (float64, error) {
	return m.GetVolume(audio.BusMusic)
}

func (m *Manager) SetSFXVolume(control float64) error {
	return m.SetVolume(audio.BusSFX, control)
}

func (m *Manager) GetSFXVolume() (float64, error) {
	return m.GetVolume(audio.BusSFX)
}
