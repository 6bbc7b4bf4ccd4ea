package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/config"
	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/manager"
	"github.com/lixenwraith/soundpool/prefs"
	"github.com/lixenwraith/soundpool/service"
	"github.com/lixenwraith/soundpool/sound"
)

// Service names registered on the hub
const (
	svcOutput = "output"
	svcPrefs  = "prefs"
)

// synthPrefix selects a built-in clip instead of a file, e.g. synth:blip
const synthPrefix = "synth:"

// runtime is the sound stack assembled for one command
type runtime struct {
	cfg    config.Config
	mixer  *audio.Mixer
	store  prefs.Backend
	mgr    *manager.Manager
	loader *sound.Loader
	hub    *service.Hub

	// live is set when speaker output opened
	live bool

	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
}

// newRuntime builds and starts the stack. Speaker output is attempted only
// when output is true and enabled in config; failing to open it is not fatal.
func newRuntime(cfg config.Config, output bool) (*runtime, error) {
	opts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, err
	}
	opts.Dependencies = []string{svcOutput, svcPrefs}

	store, err := prefs.Open(prefs.Kind(cfg.Prefs.Backend), cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	rt := &runtime{
		cfg:    cfg,
		mixer:  audio.NewMixer(beep.SampleRate(cfg.Output.SampleRate)),
		store:  store,
		loader: sound.NewLoader(nil, cfg.Output.CacheTTL),
		hub:    service.NewHub(),
	}
	rt.mgr = manager.New(rt.mixer, store, opts)

	services := []service.Service{
		rt.outputService(output && cfg.Output.Enabled),
		rt.prefsService(),
		rt.mgr.Service(),
	}
	for _, svc := range services {
		if err := rt.hub.Register(svc); err != nil {
			store.Close()
			return nil, err
		}
	}

	if err := rt.hub.InitAll(); err != nil {
		store.Close()
		return nil, err
	}
	if err := rt.hub.StartAll(); err != nil {
		store.Close()
		return nil, err
	}
	log.Debug(log.CatCLI, "Runtime started", "services", rt.hub.Names(), "live", rt.live)
	return rt, nil
}

// Close stops every service and closes the store
func (rt *runtime) Close() error {
	err := rt.hub.StopAll()
	return errors.Join(err, rt.store.Close())
}

func (rt *runtime) outputService(enabled bool) service.Service {
	return &service.Func{
		ID: svcOutput,
		OnStart: func() error {
			if !enabled {
				return nil
			}
			if err := rt.mixer.Open(rt.cfg.Output.Buffer); err != nil {
				// Non-fatal, volumes and offline rendering still work
				log.ErrorErr(log.CatAudio, "Audio output failed", err)
				return nil
			}
			rt.live = true
			return nil
		},
		OnStop: func() error {
			rt.mixer.Close()
			rt.live = false
			return nil
		},
	}
}

// prefsService reloads bus volumes when the preference file is edited by
// another process
func (rt *runtime) prefsService() service.Service {
	return &service.Func{
		ID: svcPrefs,
		OnStart: func() error {
			f, ok := rt.store.(*prefs.File)
			if !ok || !rt.cfg.Prefs.Watch {
				return nil
			}
			ctx, cancel := context.WithCancel(context.Background())
			rt.watchCancel = cancel
			rt.watchWg.Add(1)
			go func() {
				defer rt.watchWg.Done()
				err := f.Watch(ctx, func() {
					if err := rt.mgr.ReloadVolumes(); err != nil {
						log.ErrorErr(log.CatPrefs, "Applying reloaded volumes failed", err)
					}
				})
				if err != nil {
					log.ErrorErr(log.CatPrefs, "Preference watch stopped", err)
				}
			}()
			return nil
		},
		OnStop: func() error {
			if rt.watchCancel != nil {
				rt.watchCancel()
				rt.watchWg.Wait()
				rt.watchCancel = nil
			}
			return nil
		},
	}
}

// resolve turns a command-line sound reference into a descriptor. ref is a
// clip file, a bank file or synth:<kind>. bus is the bank's bus when it
// names one.
func (rt *runtime) resolve(ref string) (d sound.Descriptor, bus audio.Bus, hasBus bool, err error) {
	switch {
	case strings.HasPrefix(ref, synthPrefix):
		clip, err := rt.synth(sound.SynthKind(strings.TrimPrefix(ref, synthPrefix)))
		if err != nil {
			return sound.Descriptor{}, 0, false, err
		}
		return sound.New(sound.ID(ref), clip), 0, false, nil

	case strings.EqualFold(filepath.Ext(ref), sound.BankExt):
		b, err := sound.LoadBank(rt.soundPath(ref))
		if err != nil {
			return sound.Descriptor{}, 0, false, err
		}
		d, err := b.Pick(nil, rt.loader.Load)
		if err != nil {
			return sound.Descriptor{}, 0, false, fmt.Errorf("bank %s: %w", b.Name, err)
		}
		if b.Bus == "" {
			return d, 0, false, nil
		}
		bus, err := audio.ParseBus(b.Bus)
		if err != nil {
			return sound.Descriptor{}, 0, false, fmt.Errorf("bank %s: %w", b.Name, err)
		}
		return d, bus, true, nil

	default:
		clip, err := rt.loader.Load(rt.soundPath(ref))
		if err != nil {
			return sound.Descriptor{}, 0, false, err
		}
		id := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
		return sound.New(sound.ID(id), clip), 0, false, nil
	}
}

// synth renders a built-in clip once and keeps it in the loader cache
func (rt *runtime) synth(kind sound.SynthKind) (*sound.Clip, error) {
	name := synthPrefix + string(kind)
	if clip, ok := rt.loader.Lookup(name); ok {
		return clip, nil
	}
	clip, err := sound.Synth(kind, rt.mixer.Format().SampleRate)
	if err != nil {
		return nil, err
	}
	rt.loader.Store(name, clip)
	return clip, nil
}

// soundPath resolves a relative path against the sounds directory unless it
// exists as given
func (rt *runtime) soundPath(p string) string {
	dir := rt.cfg.Output.Sounds
	if filepath.IsAbs(p) || dir == "" || dir == "." {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(dir, p)
}
