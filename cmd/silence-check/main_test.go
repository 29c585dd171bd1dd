package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"silentwav/dsp"
	"silentwav/pkg/silence"
	"silentwav/pkg/wavfile"
)

func defaultOptions() options {
	return options{thresholdDB: dsp.DefaultSilenceThresholdDB}
}

// writeTone writes a 16-bit mono WAV whose samples alternate between +v and -v.
func writeTone(t *testing.T, path string, v int16) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	w := wavfile.NewWriter(f)
	if err := w.WriteHeader(wavfile.Format{Channels: 1, SampleWidth: 2, SampleRate: 8000}); err != nil {
		t.Fatalf("header: %v", err)
	}

	payload := make([]byte, 2*800)
	for i := 0; i < len(payload); i += 2 {
		s := v
		if i%4 == 2 {
			s = -v
		}

		payload[i] = byte(s)
		payload[i+1] = byte(uint16(s) >> 8)
	}

	if err := w.WriteFrames(payload); err != nil {
		t.Fatalf("frames: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunSilentFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, name := range []string{"a.wav", "b.aiff", "c.aifc"} {
		spec := silence.DefaultSpec(0.1)
		if err := silence.Create(filepath.Join(dir, name), spec); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	// Not audio, must be ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	opts := defaultOptions()
	opts.zero = true

	if err := run([]string{dir}, opts, &out); err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}

	if got := strings.Count(out.String(), "OK   "); got != 3 {
		t.Errorf("expected 3 OK lines, got %d:\n%s", got, out.String())
	}

	if !strings.Contains(out.String(), "(aifc,") {
		t.Errorf("AIFF-C file not identified:\n%s", out.String())
	}
}

func TestRunDetectsSound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "tone.wav"), 8000)

	var out bytes.Buffer

	err := run([]string{dir}, defaultOptions(), &out)
	if !errors.Is(err, ErrNotSilent) {
		t.Fatalf("expected ErrNotSilent, got %v", err)
	}

	if !strings.Contains(out.String(), "LOUD ") {
		t.Errorf("missing LOUD line:\n%s", out.String())
	}
}

func TestRunZeroModeCatchesDither(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dither.wav")

	// One LSB of 16-bit audio peaks at about -90.3 dBFS
	writeTone(t, path, 1)

	opts := defaultOptions()
	opts.thresholdDB = -80

	if err := run([]string{path}, opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("LSB noise should pass a -80 dBFS level check: %v", err)
	}

	opts.zero = true

	if err := run([]string{path}, opts, &bytes.Buffer{}); !errors.Is(err, ErrNotSilent) {
		t.Fatalf("expected ErrNotSilent in zero mode, got %v", err)
	}
}

func TestRunAcceptsEightBitSilence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "u8.wav")

	if err := silence.CreateSilentAudio(path, 0.1, silence.WithSampleWidth(1)); err != nil {
		t.Fatalf("CreateSilentAudio: %v", err)
	}

	for _, zero := range []bool{false, true} {
		opts := defaultOptions()
		opts.zero = zero

		var out bytes.Buffer
		if err := run([]string{path}, opts, &out); err != nil {
			t.Fatalf("zero=%v: 8-bit silence rejected: %v\n%s", zero, err, out.String())
		}

		if !strings.HasPrefix(out.String(), "OK   ") {
			t.Errorf("zero=%v: got %q", zero, out.String())
		}
	}
}

func TestRunReportsParseErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.wav")

	if err := os.WriteFile(path, []byte("definitely not a wav file header"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	err := run([]string{path}, defaultOptions(), &out)
	if !errors.Is(err, ErrNotSilent) {
		t.Fatalf("expected ErrNotSilent, got %v", err)
	}

	if !strings.Contains(out.String(), "ERROR "+path) {
		t.Errorf("missing ERROR line:\n%s", out.String())
	}
}

func TestFindAudioFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")

	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "b.AIF"),
		filepath.Join(dir, "c.mp3"),
		filepath.Join(sub, "d.aifc"),
	} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	flat, err := findAudioFiles(dir, false)
	if err != nil {
		t.Fatalf("findAudioFiles: %v", err)
	}

	if len(flat) != 2 {
		t.Errorf("non-recursive: got %v", flat)
	}

	deep, err := findAudioFiles(dir, true)
	if err != nil {
		t.Fatalf("findAudioFiles: %v", err)
	}

	if len(deep) != 3 {
		t.Errorf("recursive: got %v", deep)
	}

	if _, err := findAudioFiles(filepath.Join(dir, "missing"), false); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()

	if err := run([]string{t.TempDir()}, defaultOptions(), &bytes.Buffer{}); err == nil {
		t.Error("expected error for empty directory")
	}
}
