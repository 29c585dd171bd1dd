package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nsf/termbox-go"

	"silentwav/pkg/silence"
)

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	err := run(append([]string{"-log", ""}, args...), &stdout, &stderr)

	return stdout.String(), err
}

func TestRunGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "silence.wav")

	out, err := runArgs(t, "-o", path, "-duration", "1", "-rate", "8000")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(out, "8000 frames, 16044 bytes") {
		t.Errorf("unexpected output: %q", out)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if info.Size() != 16044 {
		t.Errorf("size: got %d, want 16044", info.Size())
	}
}

func TestRunGenerateAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pad.aifc")

	out, err := runArgs(t, "-o", path, "-duration", "0.5", "-rate", "48000", "-channels", "2", "-comptype", "sowt", "-verify", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(out, "aifc, 2 ch, 48000 Hz, 16-bit, 24000 frames") {
		t.Errorf("unexpected verify output: %q", out)
	}
}

func TestRunContainerOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.bin")

	if _, err := runArgs(t, "-o", path, "-duration", "0.01", "-container", "aiff"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(data[:4]) != "FORM" || string(data[8:12]) != "AIFF" {
		t.Errorf("expected an AIFF file, got header %q", data[:12])
	}
}

func TestRunVerifyEightBit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u8.wav")

	// All-zero 8-bit payload is full-scale DC but still counts as written silence
	if _, err := runArgs(t, "-o", path, "-duration", "0.1", "-width", "1", "-verify", path); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRunVerifyRejectsSound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loud.wav")

	if err := silence.Create(path, silence.Spec{
		Duration: 0.01, SampleRate: 8000, NumChannels: 1, SampleWidth: 2, CompressionType: "NONE",
	}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Full-scale positive sample in the middle of the payload
	data[44+40] = 0xFF
	data[44+41] = 0x7F

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runArgs(t, "-verify", path); !errors.Is(err, errNotSilent) {
		t.Fatalf("expected errNotSilent, got %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no output", nil, errMissingOutput},
		{"no duration", []string{"-o", filepath.Join(dir, "a.wav")}, errMissingDuration},
		{"negative duration", []string{"-o", filepath.Join(dir, "b.wav"), "-duration", "-1"}, silence.ErrInvalidSpec},
		{"bad compression", []string{"-o", filepath.Join(dir, "c.wav"), "-duration", "1", "-comptype", "ulaw"}, silence.ErrUnsupportedCompression},
		{"bad container", []string{"-o", filepath.Join(dir, "d.wav"), "-duration", "1", "-container", "mp3"}, silence.ErrInvalidSpec},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := runArgs(t, tc.args...); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "b.wav")); !os.IsNotExist(err) {
		t.Error("invalid spec must not create the output file")
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if err := run([]string{"-h"}, &stdout, &stderr); err != nil {
		t.Fatalf("help should not fail: %v", err)
	}

	if !strings.Contains(stderr.String(), "-duration") {
		t.Errorf("usage missing flags: %q", stderr.String())
	}
}

func TestRunWritesLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")

	var stdout, stderr bytes.Buffer

	args := []string{"-log", logPath, "-o", filepath.Join(dir, "a.wav"), "-duration", "0.01"}
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(data), "msg=\"Wrote silence\"") {
		t.Errorf("log missing write record:\n%s", data)
	}
}

func TestTUIKeys(t *testing.T) {
	dir := t.TempDir()
	state := newTUIState(silence.DefaultSpec(1), filepath.Join(dir, "tui.wav"), silence.ContainerWAV)

	key := func(k termbox.Key) { handleKey(termbox.Event{Type: termbox.EventKey, Key: k}, state) }

	// Duration 1.0 -> 1.2
	key(termbox.KeyArrowRight)
	key(termbox.KeyArrowRight)

	if state.spec.Duration != 1.2 {
		t.Errorf("duration: got %v, want 1.2", state.spec.Duration)
	}

	// Sample rate 44100 -> 48000
	key(termbox.KeyArrowDown)
	key(termbox.KeyArrowRight)

	if state.spec.SampleRate != 48000 {
		t.Errorf("rate: got %d, want 48000", state.spec.SampleRate)
	}

	// Channels cannot go below 1
	key(termbox.KeyArrowDown)
	key(termbox.KeyArrowLeft)
	key(termbox.KeyArrowLeft)

	if state.spec.NumChannels != 1 {
		t.Errorf("channels: got %d, want 1", state.spec.NumChannels)
	}

	// Container wraps backwards from WAV to AIFF-C and renames the output
	key(termbox.KeyArrowUp)
	key(termbox.KeyArrowUp)
	key(termbox.KeyArrowUp)
	key(termbox.KeyArrowLeft)

	if state.container != silence.ContainerAIFC || filepath.Ext(state.output) != ".aifc" {
		t.Errorf("container: got %s, output %s", state.container, state.output)
	}

	key(termbox.KeyEnter)

	if state.statusErr {
		t.Fatalf("generate failed: %s", state.status)
	}

	info, err := os.Stat(state.output)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if info.Size() != silence.FileSize(state.spec, silence.ContainerAIFC) {
		t.Errorf("size: got %d, want %d", info.Size(), silence.FileSize(state.spec, silence.ContainerAIFC))
	}

	handleKey(termbox.Event{Type: termbox.EventKey, Ch: 'q'}, state)

	if !state.exit {
		t.Error("q did not exit")
	}
}

func TestStepRate(t *testing.T) {
	tests := []struct {
		rate, steps, want int
	}{
		{44100, 1, 48000},
		{44100, -1, 32000},
		{45000, 1, 48000},
		{45000, -1, 44100},
		{100, 1, 8000},
		{192000, 5, 192000},
		{8000, -10, 8000},
	}

	for _, tc := range tests {
		if got := stepRate(tc.rate, tc.steps); got != tc.want {
			t.Errorf("stepRate(%d, %d): got %d, want %d", tc.rate, tc.steps, got, tc.want)
		}
	}
}

func TestRunManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pads.yaml")

	manifest := "defaults:\n  sample_rate: 8000\nfiles:\n  - {path: out/a.wav, duration: 1}\n  - {path: out/b.aiff, duration: 0.5}\n"
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runArgs(t, "-manifest", path, "-workers", "2")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(out, "Wrote 2 files, 24098 bytes") {
		t.Errorf("unexpected output: %q", out)
	}

	for _, name := range []string{"a.wav", "b.aiff"} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}
