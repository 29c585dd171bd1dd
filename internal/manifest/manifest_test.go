package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"silentwav/pkg/silence"
)

const sample = `
defaults:
  sample_rate: 8000
  channels: 2
files:
  - path: a.wav
    duration: 1
  - path: sub/b.aifc
    duration: 0.5
    channels: 1
    compression_type: sowt
    compression_name: little-endian
  - path: c.bin
    duration: 0
    container: aiff
`

func TestJobsResolveDefaults(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sample), "/base")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	jobs, err := m.Jobs()
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}

	if len(jobs) != 3 {
		t.Fatalf("got %d jobs", len(jobs))
	}

	a := jobs[0]
	if a.Path != filepath.Join("/base", "a.wav") || a.Container != silence.ContainerWAV {
		t.Errorf("job a: %+v", a)
	}

	wantA := silence.Spec{
		Duration: 1, SampleRate: 8000, NumChannels: 2, SampleWidth: 2,
		CompressionType: "NONE", CompressionName: "not compressed",
	}
	if a.Spec != wantA {
		t.Errorf("spec a: got %+v, want %+v", a.Spec, wantA)
	}

	b := jobs[1]
	if b.Container != silence.ContainerAIFC || b.Spec.NumChannels != 1 || b.Spec.SampleRate != 8000 ||
		b.Spec.CompressionType != "sowt" || b.Spec.CompressionName != "little-endian" {
		t.Errorf("job b: %+v", b)
	}

	if c := jobs[2]; c.Container != silence.ContainerAIFF || c.Spec.Duration != 0 {
		t.Errorf("job c: %+v", c)
	}
}

func TestManifestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"bad yaml", "files: [", ErrInvalidManifest},
		{"empty", "defaults:\n  channels: 2\n", ErrInvalidManifest},
		{"no path", "files:\n  - duration: 1\n", ErrInvalidManifest},
		{"no duration", "files:\n  - path: a.wav\n", ErrInvalidManifest},
		{"duplicate", "files:\n  - {path: a.wav, duration: 1}\n  - {path: ./a.wav, duration: 2}\n", ErrInvalidManifest},
		{"negative", "files:\n  - {path: a.wav, duration: -1}\n", silence.ErrInvalidSpec},
		{"compression", "files:\n  - {path: a.wav, duration: 1, compression_type: sowt}\n", silence.ErrUnsupportedCompression},
		{"container", "files:\n  - {path: a.wav, duration: 1, container: ogg}\n", silence.ErrInvalidSpec},
		{"zero rate", "files:\n  - {path: a.wav, duration: 1, sample_rate: 0}\n", silence.ErrInvalidSpec},
		{"zero channels", "files:\n  - {path: a.wav, duration: 1, channels: 0}\n", silence.ErrInvalidSpec},
		{"zero width", "files:\n  - {path: a.wav, duration: 1, sample_width: 0}\n", silence.ErrInvalidSpec},
		{"zero default rate", "defaults:\n  sample_rate: 0\nfiles:\n  - {path: a.wav, duration: 1}\n", silence.ErrInvalidSpec},
		{"empty compression", "files:\n  - {path: a.wav, duration: 1, compression_type: \"\"}\n", silence.ErrInvalidSpec},
		{"unknown entry key", "files:\n  - {path: a.wav, duration: 1, sample_rat: 8000}\n", ErrInvalidManifest},
		{"unknown defaults key", "defaults:\n  chanels: 2\nfiles:\n  - {path: a.wav, duration: 1}\n", ErrInvalidManifest},
		{"unknown top-level key", "file:\n  - {path: a.wav, duration: 1}\n", ErrInvalidManifest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m, err := Parse([]byte(tc.yaml), t.TempDir())
			if err == nil {
				_, err = m.Jobs()
			}

			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRunWritesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	jobs, err := m.Jobs()
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}

	results, err := Run(context.Background(), jobs, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, r := range results {
		info, err := os.Stat(r.Path)
		if err != nil {
			t.Fatalf("stat %s: %v", r.Path, err)
		}

		if info.Size() != r.Bytes {
			t.Errorf("%s: size %d, reported %d", r.Path, info.Size(), r.Bytes)
		}
	}

	// 1 s, 8000 Hz, stereo 16-bit WAV
	if results[0].Bytes != 44+32000 {
		t.Errorf("a.wav: got %d bytes", results[0].Bytes)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Path: filepath.Join(t.TempDir(), "x.wav"), Spec: silence.DefaultSpec(1), Container: silence.ContainerWAV}}

	if _, err := Run(ctx, jobs, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := os.Stat(jobs[0].Path); !os.IsNotExist(err) {
		t.Error("cancelled run wrote a file")
	}
}

func TestWatchReloads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")

	if err := os.WriteFile(path, []byte("files:\n  - {path: a.wav, duration: 1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Manifest, 8)
	done := make(chan error, 1)

	go func() {
		done <- Watch(ctx, path, func(m *Manifest, err error) {
			if err == nil {
				changes <- m
			}
		})
	}()

	// Give the watcher time to register before editing
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("files:\n  - {path: a.wav, duration: 2}\n  - {path: b.wav, duration: 3}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)

	for {
		select {
		case m := <-changes:
			// A write may be observed before the new content is complete
			if len(m.Files) == 2 {
				cancel()

				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}

				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
