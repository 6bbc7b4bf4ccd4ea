package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/manager"
	"github.com/lixenwraith/soundpool/pool"
	"github.com/lixenwraith/soundpool/sound"
)

var errNoOutput = errors.New("no audio output; use --render to write a WAV file instead")

// loopRender is the rendered length of looping sounds without --timeout
const loopRender = 10 * time.Second

var playFlags struct {
	bus     string
	volume  float64
	pitch   float64
	pan     float64
	delay   time.Duration
	gap     time.Duration
	loop    bool
	timeout time.Duration
	render  string
}

var playCmd = &cobra.Command{
	Use:   "play SOUND...",
	Short: "Play clips, sound banks or synthesized sounds",
	Long: `Play one or more sounds through the pool and wait for them to finish.

SOUND is a clip file (wav, mp3, ogg, flac), a sound bank (.toml) or a
built-in synthesized clip: synth:blip, synth:buzz, synth:sweep, synth:decay.
Relative paths that do not exist are looked up in output.sounds.

With --render the mix is written to a WAV file instead of the speaker.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	f := playCmd.Flags()
	f.StringVarP(&playFlags.bus, "bus", "b", "", "bus to play on (master, music, sfx); default master or the bank's bus")
	f.Float64Var(&playFlags.volume, "volume", 1, "volume multiplier")
	f.Float64Var(&playFlags.pitch, "pitch", 1, "pitch multiplier")
	f.Float64Var(&playFlags.pan, "pan", 0, "stereo pan in [-1,1]")
	f.DurationVar(&playFlags.delay, "delay", 0, "delay before the first sound")
	f.DurationVar(&playFlags.gap, "gap", 0, "delay added between successive sounds")
	f.BoolVar(&playFlags.loop, "loop", false, "loop every sound")
	f.DurationVar(&playFlags.timeout, "timeout", 0, "stop playback after this long")
	f.StringVarP(&playFlags.render, "render", "o", "", "write the mix to a WAV file")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, playFlags.render == "")
	if err != nil {
		return err
	}
	defer rt.Close()

	if playFlags.render == "" && !rt.live {
		return errNoOutput
	}

	var override *audio.Bus
	if playFlags.bus != "" {
		b, err := audio.ParseBus(playFlags.bus)
		if err != nil {
			return err
		}
		override = &b
	}

	out := cmd.OutOrStdout()
	var (
		handles []manager.Handle
		played  []sound.Descriptor
		dropped int
	)
	for i, ref := range args {
		d, bus, hasBus, err := rt.resolve(ref)
		if err != nil {
			return err
		}
		if !hasBus {
			bus = audio.BusMaster
		}
		if override != nil {
			bus = *override
		}
		d = applyPlayFlags(d, i)

		h, err := rt.mgr.Play(d, bus)
		if errors.Is(err, pool.ErrPoolExhausted) {
			dropped++
			fmt.Fprintf(out, "dropped %s: pool exhausted\n", d.ID)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "playing %s on %s (slot %d, %s)\n", d.ID, bus, h.Slot(), d.Clip.Duration().Round(time.Millisecond))
		handles = append(handles, h)
		played = append(played, d)
	}

	if playFlags.render != "" {
		if err := renderMix(rt, played, playFlags.render); err != nil {
			return err
		}
		rt.mgr.Update()
		fmt.Fprintf(out, "rendered %d sounds to %s\n", len(played), playFlags.render)
	} else {
		waitHandles(cmd.Context(), rt.mgr, handles)
	}

	if stats, err := rt.mgr.Stats(); err == nil {
		log.Info(log.CatCLI, "Playback finished", "acquired", stats.Acquired, "completed", stats.Completed, "dropped", stats.Dropped)
	}
	if dropped > 0 {
		return fmt.Errorf("%d of %d sounds dropped: %w", dropped, len(args), pool.ErrPoolExhausted)
	}
	return nil
}

// applyPlayFlags layers the command-line adjustments onto the i-th sound
func applyPlayFlags(d sound.Descriptor, i int) sound.Descriptor {
	d.Volume *= playFlags.volume
	d.Pitch *= playFlags.pitch
	if playFlags.pan != 0 {
		d.Pan = playFlags.pan
	}
	d.Delay += playFlags.delay + time.Duration(i)*playFlags.gap
	d.Loop = d.Loop || playFlags.loop
	return d
}

// waitHandles blocks until every handle finished, the timeout passed or the
// process is interrupted; anything still playing is stopped
func waitHandles(ctx context.Context, mgr *manager.Manager, handles []manager.Handle) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if playFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, playFlags.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := mgr.StopAll(); err != nil {
				log.ErrorErr(log.CatCLI, "Stopping sounds failed", err)
			}
			return
		case <-ticker.C:
			if !anyPlaying(handles) {
				return
			}
		}
	}
}

func anyPlaying(handles []manager.Handle) bool {
	for _, h := range handles {
		if h.Playing() {
			return true
		}
	}
	return false
}

// renderMix pulls the mixer offline for as long as the longest sound and
// encodes the result as WAV
func renderMix(rt *runtime, played []sound.Descriptor, path string) error {
	format := rt.mixer.Format()
	frames := renderFrames(format.SampleRate, played)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encodeMix(f, rt.mixer, format, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeMix(w io.WriteSeeker, s beep.Streamer, format beep.Format, frames int) error {
	if err := wav.Encode(w, beep.Take(frames, s), format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// renderFrames is the output length covering every sound, at sr
func renderFrames(sr beep.SampleRate, played []sound.Descriptor) int {
	var longest time.Duration
	for _, d := range played {
		var length time.Duration
		switch {
		case d.Loop && playFlags.timeout > 0:
			length = playFlags.timeout
		case d.Loop:
			length = loopRender
		default:
			length = d.Delay + time.Duration(float64(d.Clip.Duration())/d.Pitch)
		}
		if length > longest {
			longest = length
		}
	}
	if playFlags.timeout > 0 && longest > playFlags.timeout {
		longest = playFlags.timeout
	}
	// Resampler latency
	return sr.N(longest) + sr.N(20*time.Millisecond)
}
