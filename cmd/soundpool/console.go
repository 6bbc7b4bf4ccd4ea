package main

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/sound"
)

const (
	consoleFrameMs = 50
	statusMs       = 2000
	sliderWidth    = 30

	fineStep   = 0.05
	coarseStep = 0.25
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal mixer",
	Long: `Adjust bus volumes with live feedback and fire synthesized sounds.

  up/down, k/j     select bus
  left/right, h/l  adjust by 0.05 (PgUp/PgDn by 0.25)
  1-4              play blip, buzz, sweep, decay on the sfx bus
  space            play a blip on the selected bus
  m                mute output
  s                stop all sounds
  q, Esc, Ctrl+C   quit`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}

	c := newConsole(rt, screen)
	defer func() {
		// Restore the terminal before a panic is printed
		if r := recover(); r != nil {
			screen.Fini()
			panic(r)
		}
		screen.Fini()
	}()

	if !rt.live {
		c.setStatus("no audio output, volume changes are still saved", true)
	}
	c.run()
	return nil
}

// console is the terminal mixer
type console struct {
	rt            *runtime
	screen        tcell.Screen
	width, height int

	selected int

	status      string
	statusError bool
	statusTime  time.Time
}

func newConsole(rt *runtime, screen tcell.Screen) *console {
	c := &console{rt: rt, screen: screen}
	c.width, c.height = screen.Size()
	return c
}

func (c *console) run() {
	ticker := time.NewTicker(consoleFrameMs * time.Millisecond)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := c.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	c.draw()
	for {
		select {
		case ev := <-eventChan:
			if !c.handleInput(ev) {
				return
			}
			c.draw()

		case <-ticker.C:
			c.draw()
		}
	}
}

// handleInput applies one event, false means quit
func (c *console) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			c.moveSelection(-1)
		case tcell.KeyDown:
			c.moveSelection(1)
		case tcell.KeyLeft:
			c.adjust(-fineStep)
		case tcell.KeyRight:
			c.adjust(fineStep)
		case tcell.KeyPgDn:
			c.adjust(-coarseStep)
		case tcell.KeyPgUp:
			c.adjust(coarseStep)
		case tcell.KeyRune:
			return c.handleRune(ev.Rune())
		}

	case *tcell.EventResize:
		c.width, c.height = c.screen.Size()
		c.screen.Sync()
	}

	return true
}

func (c *console) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case 'k':
		c.moveSelection(-1)
	case 'j':
		c.moveSelection(1)
	case 'h':
		c.adjust(-fineStep)
	case 'l':
		c.adjust(fineStep)
	case 'm':
		if c.rt.mixer.ToggleMute() {
			c.setStatus("output muted", false)
		} else {
			c.setStatus("output unmuted", false)
		}
	case 's':
		n, err := c.rt.mgr.StopAll()
		if err != nil {
			c.setStatus(err.Error(), true)
			break
		}
		c.setStatus(fmt.Sprintf("stopped %d sounds", n), false)
	case ' ':
		c.play(sound.SynthBlip, c.bus())
	case '1', '2', '3', '4':
		c.play(sound.SynthKinds[r-'1'], audio.BusSFX)
	}
	return true
}

func (c *console) bus() audio.Bus {
	return audio.Buses()[c.selected]
}

func (c *console) moveSelection(delta int) {
	n := len(audio.Buses())
	c.selected = (c.selected + delta + n) % n
}

// adjust moves the selected slider by delta, snapped to the fine step
func (c *console) adjust(delta float64) {
	b := c.bus()
	cur, err := c.rt.mgr.GetVolume(b)
	if err != nil {
		c.setStatus(err.Error(), true)
		return
	}
	next := math.Round((cur+delta)/fineStep) * fineStep
	next = math.Max(0, math.Min(1, next))
	if err := c.rt.mgr.SetVolume(b, next); err != nil {
		c.setStatus(err.Error(), true)
		return
	}
	log.Debug(log.CatCLI, "Console volume", "bus", b, "control", next)
}

func (c *console) play(kind sound.SynthKind, bus audio.Bus) {
	clip, err := c.rt.synth(kind)
	if err != nil {
		c.setStatus(err.Error(), true)
		return
	}
	h, err := c.rt.mgr.Play(sound.New(sound.ID(synthPrefix+string(kind)), clip), bus)
	if err != nil {
		c.setStatus(err.Error(), true)
		return
	}
	c.setStatus(fmt.Sprintf("%s on %s, slot %d", kind, bus, h.Slot()), false)
}

func (c *console) setStatus(msg string, isError bool) {
	c.status = msg
	c.statusError = isError
	c.statusTime = time.Now()
}

func (c *console) draw() {
	c.screen.Clear()

	title := tcell.StyleDefault.Bold(true)
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)
	c.text(1, 0, "soundpool mixer", title)

	for i, b := range audio.Buses() {
		y := 2 + i
		style := tcell.StyleDefault
		marker := "  "
		if i == c.selected {
			style = style.Foreground(tcell.ColorYellow)
			marker = "> "
		}

		control, err := c.rt.mgr.GetVolume(b)
		if err != nil {
			c.text(1, y, fmt.Sprintf("%s%-6s %v", marker, b, err), style.Foreground(tcell.ColorRed))
			continue
		}
		level, _ := c.rt.mixer.GetBusParameter(b.Param())
		line := fmt.Sprintf("%s%-6s %s %4.2f %7.2f dB", marker, b, sliderBar(control, sliderWidth), control, level)
		c.text(1, y, line, style)
	}

	size := c.rt.mgr.GetCurrentPoolSize()
	if stats, err := c.rt.mgr.Stats(); err == nil {
		active := len(c.rt.mgr.ActiveSlots())
		c.text(1, 6, fmt.Sprintf("pool   %d/%d active  acquired %d  completed %d  dropped %d  stolen %d",
			active, size, stats.Acquired, stats.Completed, stats.Dropped, stats.Stolen), tcell.StyleDefault)
	}

	mix := c.rt.mixer.Stats()
	c.text(1, 7, fmt.Sprintf("voices live %d  started %d  finished %d  halted %d",
		mix.Live, mix.Started, mix.Finished, mix.Halted), tcell.StyleDefault)

	output := "speaker"
	if !c.rt.live {
		output = "none"
	}
	c.text(1, 8, "output "+output, dim)
	if c.rt.mixer.IsMuted() {
		c.text(len("output "+output)+3, 8, "MUTED", tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true))
	}

	if c.status != "" && time.Since(c.statusTime).Milliseconds() < statusMs {
		style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
		if c.statusError {
			style = tcell.StyleDefault.Foreground(tcell.ColorRed)
		}
		c.text(1, c.height-2, c.status, style)
	}
	c.text(1, c.height-1, "↑↓ select  ←→ adjust  1-4 play  space blip  m mute  s stop  q quit", dim)

	c.screen.Show()
}

func (c *console) text(x, y int, s string, style tcell.Style) {
	if y < 0 || y >= c.height {
		return
	}
	for _, r := range s {
		if x >= c.width {
			return
		}
		c.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// sliderBar renders control in [0,1] as a bar of width cells
func sliderBar(control float64, width int) string {
	filled := int(math.Round(math.Max(0, math.Min(1, control)) * float64(width)))
	bar := make([]rune, 0, width+2)
	bar = append(bar, '[')
	for i := 0; i < width; i++ {
		if i < filled {
			bar = append(bar, '█')
		} else {
			bar = append(bar, '░')
		}
	}
	bar = append(bar, ']')
	return string(bar)
}
