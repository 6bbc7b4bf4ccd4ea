package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/audio/audiotest"
	"github.com/lixenwraith/soundpool/curve"
	"github.com/lixenwraith/soundpool/pool"
	"github.com/lixenwraith/soundpool/prefs"
	"github.com/lixenwraith/soundpool/sound"
)

func testClip(t *testing.T) *sound.Clip {
	t.Helper()
	clip, err := sound.Synth(sound.SynthBuzz, audio.DefaultSampleRate)
	require.NoError(t, err)
	return clip
}

func newManager(t *testing.T, capacity int) (*Manager, *audiotest.Sink, *prefs.Memory) {
	t.Helper()
	sink := audiotest.NewSink()
	store := prefs.NewMemory()
	opts := DefaultOptions()
	opts.Pool = pool.Config{Capacity: capacity}
	m := New(sink, store, opts)
	require.NoError(t, m.Setup())
	t.Cleanup(func() { m.Close() })
	return m, sink, store
}

func identityOptions() Options {
	opts := DefaultOptions()
	opts.Mapper = curve.NewMapper(nil, 0, 1)
	return opts
}

func TestNotReadyBeforeSetup(t *testing.T) {
	m := New(audiotest.NewSink(), nil, DefaultOptions())
	clip := testClip(t)

	h, err := m.Play(sound.New("a", clip))
	assert.ErrorIs(t, err, ErrNotReady)
	assert.True(t, h.Dropped)
	assert.False(t, h.Stop())

	stopped, err := m.Stop("a")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, stopped)
	n, err := m.StopAll()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, n)
	assert.Zero(t, m.Update())
	assert.Zero(t, m.GetCurrentPoolSize())
	assert.Nil(t, m.ActiveSlots())
	assert.ErrorIs(t, m.SetGlobalVolume(0.5), ErrNotReady)
	_, err = m.GetGlobalVolume()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = m.Stats()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, m.ReloadVolumes(), ErrNotReady)
	assert.ErrorIs(t, m.Run(context.Background(), time.Millisecond), ErrNotReady)
	assert.ErrorIs(t, m.Start(), ErrNotReady)
}

func TestSetupLoadsPersistedVolumes(t *testing.T) {
	sink := audiotest.NewSink()
	store := prefs.NewMemory()
	require.NoError(t, store.SetFloat("GlobalMusicVolume", -20))

	m := New(sink, store, DefaultOptions())
	require.NoError(t, m.Setup())
	defer m.Close()

	got, ok := sink.GetBusParameter("GlobalMusicVolume")
	require.True(t, ok)
	assert.Equal(t, -20.0, got, "Expected stored level to reach the sink unchanged")

	// Unset buses default to full volume
	got, ok = sink.GetBusParameter("GlobalMasterVolume")
	require.True(t, ok)
	assert.Equal(t, 0.0, got)

	assert.Equal(t, pool.DefaultCapacity, m.GetCurrentPoolSize())
	require.NoError(t, m.Setup(), "Expected second Setup to be a no-op")
	assert.Len(t, sink.Voices(), pool.DefaultCapacity)
}

func TestSetupFailureLeavesNoState(t *testing.T) {
	sink := audiotest.NewSink()
	sink.FailParam = true
	m := New(sink, nil, DefaultOptions())

	err := m.Setup()
	assert.ErrorIs(t, err, audiotest.ErrInjected)
	_, err = m.Play(sound.New("a", testClip(t)))
	assert.ErrorIs(t, err, ErrNotReady)

	sink.FailParam = false
	require.NoError(t, m.Setup())
	defer m.Close()
	assert.Equal(t, pool.DefaultCapacity, m.GetCurrentPoolSize())
}

func TestSetupPoolFailure(t *testing.T) {
	sink := audiotest.NewSink()
	sink.FailVoice = 1
	m := New(sink, nil, DefaultOptions())

	err := m.Setup()
	assert.ErrorIs(t, err, audiotest.ErrInjected)
	assert.Zero(t, m.GetCurrentPoolSize())

	assert.ErrorIs(t, New(nil, nil, DefaultOptions()).Setup(), audio.ErrNoDevice)
}

func TestCapacityTwoDropsThird(t *testing.T) {
	m, sink, _ := newManager(t, 2)
	clip := testClip(t)

	a, err := m.Play(sound.New("a", clip))
	require.NoError(t, err)
	b, err := m.Play(sound.New("b", clip))
	require.NoError(t, err)
	c, err := m.Play(sound.New("c", clip))

	assert.ErrorIs(t, err, pool.ErrPoolExhausted)
	assert.True(t, c.Dropped)
	assert.Equal(t, uuid.Nil, c.ID)
	assert.Equal(t, -1, c.Slot())
	assert.False(t, c.Stop())

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Playing())
	assert.True(t, b.Playing())
	assert.Len(t, sink.Playing(), 2)
	assert.Len(t, m.ActiveSlots(), 2)
	assert.Equal(t, 2, m.GetCurrentPoolSize())

	st, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Dropped)
}

func TestPlayDefaultsToMasterBus(t *testing.T) {
	m, sink, _ := newManager(t, 2)
	clip := testClip(t)

	h, err := m.Play(sound.New("a", clip))
	require.NoError(t, err)
	assert.Equal(t, audio.BusMaster, h.Bus)

	h2, err := m.Play(sound.New("b", clip), audio.BusMusic)
	require.NoError(t, err)
	assert.Equal(t, audio.BusMusic, h2.Bus)

	buses := map[sound.ID]audio.Bus{}
	for _, v := range sink.Playing() {
		buses[v.Descriptor().ID] = v.Bus()
	}
	assert.Equal(t, map[sound.ID]audio.Bus{"a": audio.BusMaster, "b": audio.BusMusic}, buses)
}

func TestPlayThenStop(t *testing.T) {
	m, sink, _ := newManager(t, 2)
	clip := testClip(t)

	h, err := m.Play(sound.New("boom", clip))
	require.NoError(t, err)

	stopped, err := m.Stop("boom")
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.Empty(t, m.ActiveSlots())
	assert.Empty(t, sink.Playing())
	assert.False(t, h.Playing())

	// Stopping a finished sound is silent
	stopped, err = m.Stop("boom")
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.False(t, h.Stop())
}

func TestStopFirstMatchOnly(t *testing.T) {
	m, _, _ := newManager(t, 3)
	clip := testClip(t)

	first, err := m.Play(sound.New("dup", clip))
	require.NoError(t, err)
	second, err := m.Play(sound.New("dup", clip))
	require.NoError(t, err)

	stopped, err := m.Stop("dup")
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.False(t, first.Playing())
	assert.True(t, second.Playing())
}

func TestHandleStop(t *testing.T) {
	m, _, _ := newManager(t, 2)
	clip := testClip(t)

	h, err := m.Play(sound.New("a", clip))
	require.NoError(t, err)
	other, err := m.Play(sound.New("a", clip))
	require.NoError(t, err)

	assert.True(t, other.Stop(), "Expected handle to stop its own play, not the first match")
	assert.True(t, h.Playing())
	n, err := m.StopAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNaturalCompletionFreesSlot(t *testing.T) {
	m, sink, _ := newManager(t, 1)
	clip := testClip(t)

	h, err := m.Play(sound.New("a", clip))
	require.NoError(t, err)
	sink.Voices()[0].Finish()

	assert.Equal(t, 1, m.Update())
	assert.False(t, h.Playing())

	_, err = m.Play(sound.New("b", clip))
	assert.NoError(t, err)
}

func TestPlayRejectsInvalidDescriptor(t *testing.T) {
	m, _, _ := newManager(t, 1)

	h, err := m.Play(sound.New("a", testClip(t)).WithPitch(0))
	assert.ErrorIs(t, err, sound.ErrInvalidDescriptor)
	assert.False(t, errors.Is(err, pool.ErrPoolExhausted))
	assert.True(t, h.Dropped)
	assert.Empty(t, m.ActiveSlots())
}

func TestIdentityVolumeScenario(t *testing.T) {
	sink := audiotest.NewSink()
	store := prefs.NewMemory()
	m := New(sink, store, identityOptions())
	require.NoError(t, m.Setup())
	defer m.Close()

	require.NoError(t, m.SetGlobalVolume(0.5))

	assert.Equal(t, 0.5, store.GetFloat("GlobalMasterVolume", -1))
	got, ok := sink.GetBusParameter("GlobalMasterVolume")
	require.True(t, ok)
	assert.Equal(t, 0.5, got)

	v, err := m.GetGlobalVolume()
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
}

func TestNamedVolumeWrappers(t *testing.T) {
	m, sink, store := newManager(t, 1)

	require.NoError(t, m.SetMusicVolume(0.1))
	require.NoError(t, m.SetSFXVolume(1))
	require.NoError(t, m.SetGlobalVolume(0))

	// Log curve over four decades: 0.1 is -20 dB on a [-80, 0] range
	got, _ := sink.GetBusParameter("GlobalMusicVolume")
	assert.InDelta(t, -20, got, 1e-9)
	assert.InDelta(t, -20, store.GetFloat("GlobalMusicVolume", 0), 1e-9)
	got, _ = sink.GetBusParameter("GlobalMasterVolume")
	assert.Equal(t, audio.SilenceFloor, got)

	music, err := m.GetMusicVolume()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, music, 1e-9)
	sfx, err := m.GetSFXVolume()
	require.NoError(t, err)
	assert.InDelta(t, 1, sfx, 1e-9)
	global, err := m.GetGlobalVolume()
	require.NoError(t, err)
	assert.Zero(t, global)
}

func TestGetVolumeFallsBackToStore(t *testing.T) {
	m, sink, _ := newManager(t, 1)
	require.NoError(t, m.SetSFXVolume(0.1))

	sink.ClearParameter("GlobalSFXVolume")
	v, err := m.GetSFXVolume()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v, 1e-9)

	// Neither sink nor store: full volume
	sink.ClearParameter("GlobalMusicVolume")
	v, err = m.GetMusicVolume()
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-9)
}

func TestGetVolumeMappingError(t *testing.T) {
	sink := audiotest.NewSink()
	hump, err := curve.NewKeyed(curve.Key{In: 0, Out: 0}, curve.Key{In: 0.5, Out: 1}, curve.Key{In: 1, Out: 0})
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Mapper = curve.NewMapper(hump, 0, 1)

	m := New(sink, nil, opts)
	require.NoError(t, m.Setup())
	defer m.Close()

	_, err = m.GetGlobalVolume()
	assert.ErrorIs(t, err, curve.ErrNotInvertible)
	var me *curve.MappingError
	assert.ErrorAs(t, err, &me)
}

func TestSetVolumeErrors(t *testing.T) {
	m, sink, _ := newManager(t, 1)

	assert.ErrorIs(t, m.SetVolume(audio.Bus(7), 0.5), audio.ErrUnknownBus)
	_, err := m.GetVolume(audio.Bus(7))
	assert.ErrorIs(t, err, audio.ErrUnknownBus)

	sink.FailParam = true
	assert.ErrorIs(t, m.SetSFXVolume(0.5), audiotest.ErrInjected)
}

func TestReloadVolumes(t *testing.T) {
	m, sink, store := newManager(t, 1)

	require.NoError(t, store.SetFloat("GlobalSFXVolume", -33))
	require.NoError(t, m.ReloadVolumes())

	got, _ := sink.GetBusParameter("GlobalSFXVolume")
	assert.Equal(t, -33.0, got)
}

func TestRunAppliesCompletions(t *testing.T) {
	m, sink, _ := newManager(t, 1)
	h, err := m.Play(sound.New("a", testClip(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()

	sink.Voices()[0].Finish()
	assert.Eventually(t, func() bool { return !h.Playing() }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestServiceLifecycle(t *testing.T) {
	sink := audiotest.NewSink()
	opts := DefaultOptions()
	opts.UpdateInterval = time.Millisecond
	opts.Dependencies = []string{"output"}
	m := New(sink, nil, opts)

	svc := m.Service()
	assert.Equal(t, ServiceName, svc.Name())
	assert.Equal(t, []string{"output"}, svc.Dependencies())

	require.NoError(t, svc.Init())
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())

	h, err := m.Play(sound.New("a", testClip(t)))
	require.NoError(t, err)
	sink.Voices()[0].Finish()
	assert.Eventually(t, func() bool { return !h.Playing() }, time.Second, time.Millisecond)

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
	_, err = m.Play(sound.New("b", testClip(t)))
	assert.ErrorIs(t, err, ErrNotReady)
}
