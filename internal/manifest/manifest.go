// Package manifest generates batches of silent files described in YAML.
//
// A manifest has an optional defaults block and a list of files:
//
//	defaults:
//	  sample_rate: 48000
//	  channels: 2
//	files:
//	  - path: pads/short.wav
//	    duration: 0.5
//	  - path: pads/long.aifc
//	    duration: 10
//	    compression_type: sowt
//
// Relative paths resolve against the manifest's directory.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"silentwav/pkg/silence"
)

// ErrInvalidManifest is returned for manifests that cannot be turned into jobs.
var ErrInvalidManifest = errors.New("manifest: invalid manifest")

// Params are the PCM settings shared by the defaults block and each entry.
// Unset fields fall through to the next level; a value that is set, even
// zero, is used as given.
type Params struct {
	SampleRate      *int    `yaml:"sample_rate,omitempty"`
	Channels        *int    `yaml:"channels,omitempty"`
	SampleWidth     *int    `yaml:"sample_width,omitempty"`
	CompressionType *string `yaml:"compression_type,omitempty"`
	CompressionName *string `yaml:"compression_name,omitempty"`
}

// Entry is one file to generate.
type Entry struct {
	Path      string   `yaml:"path"`
	Duration  *float64 `yaml:"duration"`
	Container string   `yaml:"container,omitempty"` // Overrides the extension
	Params    `yaml:",inline"`
}

// Manifest is a parsed manifest file.
type Manifest struct {
	Defaults Params  `yaml:"defaults"`
	Files    []Entry `yaml:"files"`

	dir string
}

// Job is a resolved entry ready to be written.
type Job struct {
	Path      string
	Spec      silence.Spec
	Container silence.Container
}

// Result is a written job.
type Result struct {
	Job
	Bytes int64
}

// Parse decodes a manifest. Relative paths resolve against dir.
// Unknown keys are rejected.
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse YAML: %w", ErrInvalidManifest, err)
	}

	if len(m.Files) == 0 {
		return nil, fmt.Errorf("%w: no files listed", ErrInvalidManifest)
	}

	m.dir = dir

	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}

	return Parse(data, filepath.Dir(path))
}

// Jobs resolves every entry against the defaults and validates it.
func (m *Manifest) Jobs() ([]Job, error) {
	jobs := make([]Job, 0, len(m.Files))
	seen := make(map[string]int, len(m.Files))

	for i, e := range m.Files {
		if e.Path == "" {
			return nil, fmt.Errorf("%w: file %d has no path", ErrInvalidManifest, i)
		}

		if e.Duration == nil {
			return nil, fmt.Errorf("%w: %s has no duration", ErrInvalidManifest, e.Path)
		}

		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}

		path = filepath.Clean(path)
		if prev, dup := seen[path]; dup {
			return nil, fmt.Errorf("%w: %s listed twice (files %d and %d)", ErrInvalidManifest, e.Path, prev, i)
		}

		seen[path] = i

		container := silence.ContainerForPath(path)
		if e.Container != "" {
			c, err := silence.ParseContainer(e.Container)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Path, err)
			}

			container = c
		}

		spec := m.resolve(e)
		if err := silence.Validate(spec, container); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path, err)
		}

		jobs = append(jobs, Job{Path: path, Spec: spec, Container: container})
	}

	return jobs, nil
}

func (m *Manifest) resolve(e Entry) silence.Spec {
	spec := silence.DefaultSpec(*e.Duration)

	for _, p := range []Params{m.Defaults, e.Params} {
		if p.SampleRate != nil {
			spec.SampleRate = *p.SampleRate
		}

		if p.Channels != nil {
			spec.NumChannels = *p.Channels
		}

		if p.SampleWidth != nil {
			spec.SampleWidth = *p.SampleWidth
		}

		if p.CompressionType != nil {
			spec.CompressionType = *p.CompressionType
		}

		if p.CompressionName != nil {
			spec.CompressionName = *p.CompressionName
		}
	}

	return spec
}

// Run writes jobs with at most workers files in flight. It stops at the
// first error; files already written are kept.
func Run(ctx context.Context, jobs []Job, workers int) ([]Result, error) {
	runID := xid.New().String()
	logger := slog.With("run", runID)
	logger.Info("Manifest run started", "files", len(jobs), "workers", workers)

	results := make([]Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := silence.CreateAs(job.Path, job.Spec, job.Container); err != nil {
				logger.Error("Failed to write file", "path", job.Path, "error", err)
				return fmt.Errorf("%s: %w", job.Path, err)
			}

			results[i] = Result{Job: job, Bytes: silence.FileSize(job.Spec, job.Container)}
			logger.Debug("Wrote file", "path", job.Path, "bytes", results[i].Bytes)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Manifest run finished", "files", len(jobs))

	return results, nil
}
