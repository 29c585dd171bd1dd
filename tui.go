package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nsf/termbox-go"

	"silentwav/pkg/silence"
	"silentwav/pkg/wavfile"
)

const (
	colDef    = termbox.ColorDefault
	colWhite  = termbox.ColorWhite
	colRed    = termbox.ColorRed
	colGreen  = termbox.ColorGreen
	colYellow = termbox.ColorYellow
	colCyan   = termbox.ColorCyan
)

// Parameter rows, in display order.
const (
	paramDuration = iota
	paramRate
	paramChannels
	paramWidth
	paramContainer
	numParams
)

var paramNames = [numParams]string{
	"Duration (s)",
	"Sample Rate (Hz)",
	"Channels",
	"Sample Width (bytes)",
	"Container",
}

var commonRates = []int{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 176400, 192000}

var containers = []silence.Container{silence.ContainerWAV, silence.ContainerAIFF, silence.ContainerAIFC}

// TUIState is the editable state of the interactive generator.
type TUIState struct {
	spec          silence.Spec
	container     silence.Container
	output        string
	selectedParam int
	exit          bool

	status    string
	statusErr bool
}

func newTUIState(spec silence.Spec, output string, container silence.Container) *TUIState {
	if output == "" {
		output = "silence" + container.Extension()
	}

	return &TUIState{spec: spec, output: output, container: container}
}

func runTUI(state *TUIState) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("failed to initialize TUI: %w", err)
	}
	defer termbox.Close()

	termbox.SetInputMode(termbox.InputEsc)

	eventQueue := make(chan termbox.Event)

	go func() {
		for {
			eventQueue <- termbox.PollEvent()
		}
	}()

	draw(state)

	for !state.exit {
		ev := <-eventQueue

		switch ev.Type {
		case termbox.EventKey:
			handleKey(ev, state)
		case termbox.EventError:
			return fmt.Errorf("terminal error: %w", ev.Err)
		}

		draw(state)
	}

	return nil
}

func handleKey(ev termbox.Event, s *TUIState) {
	if ev.Key == termbox.KeyEsc || ev.Ch == 'q' {
		s.exit = true
		return
	}

	switch ev.Key {
	case termbox.KeyArrowUp:
		s.selectedParam = (s.selectedParam + numParams - 1) % numParams
	case termbox.KeyArrowDown:
		s.selectedParam = (s.selectedParam + 1) % numParams
	case termbox.KeyArrowRight:
		s.adjust(1)
	case termbox.KeyArrowLeft:
		s.adjust(-1)
	case termbox.KeyPgup:
		s.adjust(10)
	case termbox.KeyPgdn:
		s.adjust(-10)
	case termbox.KeyEnter:
		s.generate()
	}
}

// adjust moves the selected parameter by steps.
func (s *TUIState) adjust(steps int) {
	switch s.selectedParam {
	case paramDuration:
		// Tenths of a second, kept on the grid to avoid float drift
		tenths := int(s.spec.Duration*10+0.5) + steps
		s.spec.Duration = float64(max(tenths, 0)) / 10
	case paramRate:
		s.spec.SampleRate = stepRate(s.spec.SampleRate, steps)
	case paramChannels:
		s.spec.NumChannels = clamp(s.spec.NumChannels+steps, 1, 32)
	case paramWidth:
		s.spec.SampleWidth = clamp(s.spec.SampleWidth+steps, 1, wavfile.MaxSampleWidth)
	case paramContainer:
		idx := 0
		for i, c := range containers {
			if c == s.container {
				idx = i
			}
		}

		idx = ((idx+steps)%len(containers) + len(containers)) % len(containers)
		s.container = containers[idx]
		s.output = strings.TrimSuffix(s.output, filepath.Ext(s.output)) + s.container.Extension()
	}

	s.status = ""
}

// stepRate moves through commonRates. A rate that is not in the list counts
// as sitting between its two neighbours.
func stepRate(rate, steps int) int {
	idx, found := slices.BinarySearch(commonRates, rate)
	if !found && steps > 0 {
		idx--
	}

	return commonRates[clamp(idx+steps, 0, len(commonRates)-1)]
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// generate writes the current spec to the output path and records the outcome.
func (s *TUIState) generate() {
	err := silence.CreateAs(s.output, s.spec, s.container)
	if err != nil {
		slog.Error("Failed to write silence", "output", s.output, "error", err)

		s.statusErr = true
		if errors.Is(err, silence.ErrInvalidSpec) {
			s.status = "Invalid parameters: " + err.Error()
		} else {
			s.status = "Write failed: " + err.Error()
		}

		return
	}

	size := silence.FileSize(s.spec, s.container)
	slog.Info("Wrote silence", "output", s.output, "container", s.container, "frames", s.spec.FrameCount(), "bytes", size)

	s.statusErr = false
	s.status = fmt.Sprintf("Wrote %s (%d frames, %d bytes)", s.output, s.spec.FrameCount(), size)
}

func (s *TUIState) values() [numParams]string {
	return [numParams]string{
		fmt.Sprintf("%.1f", s.spec.Duration),
		fmt.Sprintf("%d", s.spec.SampleRate),
		fmt.Sprintf("%d", s.spec.NumChannels),
		fmt.Sprintf("%d (%d-bit)", s.spec.SampleWidth, s.spec.SampleWidth*8),
		s.container.String(),
	}
}

func draw(state *TUIState) {
	_ = termbox.Clear(colDef, colDef)

	// Header
	printTB(0, 0, colCyan, colDef, "silentwav - Interactive Mode")
	printTB(0, 1, colWhite, colDef, "Output: "+state.output)
	printTB(0, 2, colDef, colDef, "Up/Down select, Left/Right adjust (PgUp/PgDn x10), Enter writes, 'q' or Esc quits.")
	printTB(0, 3, colDef, colDef, "----------------------------------------------------")

	vals := state.values()

	for i, name := range paramNames {
		col := colWhite
		bgColor := colDef
		prefix := "  "

		if i == state.selectedParam {
			col = colDef       // Black usually if bg is white
			bgColor = colWhite // Highlight
			prefix = "> "
		}

		line := fmt.Sprintf("%-24s %s", prefix+name, vals[i])
		printTB(0, 5+i, col, bgColor, line)
	}

	infoY := 5 + numParams + 1
	printTB(0, infoY, colYellow, colDef, "Output:")

	if err := silence.Validate(state.spec, state.container); err != nil {
		printTB(2, infoY+1, colRed, colDef, err.Error())
	} else {
		size := silence.FileSize(state.spec, state.container)
		printTB(2, infoY+1, colDef, colDef, fmt.Sprintf("%d frames, %d bytes", state.spec.FrameCount(), size))
		drawBar(infoY+2, "Size limit", float64(size)/float64(1<<32), colGreen)
	}

	if state.status != "" {
		col := colGreen
		if state.statusErr {
			col = colRed
		}

		printTB(0, infoY+4, col, colDef, state.status)
	}

	termbox.Flush()
}

// drawBar draws ratio (0..1) as a horizontal bar.
func drawBar(yPos int, label string, ratio float64, color termbox.Attribute) {
	const (
		barWidth = 60
		xPos     = 2
	)

	ratio = max(0, min(ratio, 1))
	filled := int(ratio * float64(barWidth))

	printTB(xPos, yPos, colDef, colDef, fmt.Sprintf("%-10s [%5.1f%%] ", label, ratio*100))

	startX := xPos + 21

	for i := range barWidth {
		barChar := '░'
		if i < filled {
			barChar = '█'
		}

		termbox.SetCell(startX+i, yPos, barChar, color, colDef)
	}
}

func printTB(x, y int, fg, bg termbox.Attribute, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, fg, bg)
		x++
	}
}
