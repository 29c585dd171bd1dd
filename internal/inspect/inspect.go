// Package inspect reads a WAV or AIFF file back and measures how silent it is.
package inspect

import (
	"fmt"
	"os"

	"silentwav/dsp"
	"silentwav/internal/aiff"
	"silentwav/pkg/silence"
	"silentwav/pkg/wavfile"
)

// Result is the outcome of inspecting one file.
type Result struct {
	Path        string
	Container   silence.Container
	Channels    int
	SampleRate  float64
	SampleWidth int
	Frames      int64
	ZeroPayload bool // Every payload byte is 0x00
	Report      dsp.Report
}

// Duration returns the length of the audio in seconds.
func (r Result) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}

	return float64(r.Frames) / r.SampleRate
}

// Silent reports whether the file holds silence. An all-zero payload always
// passes, which covers 8-bit WAV where zero bytes decode to full-scale DC.
// Otherwise the level must be at or below thresholdDB, unless requireZero is
// set, in which case only an all-zero payload passes.
func (r Result) Silent(thresholdDB float64, requireZero bool) bool {
	if r.ZeroPayload {
		return true
	}

	if requireZero {
		return false
	}

	return r.Report.Silent(thresholdDB)
}

// String returns a one-line summary.
func (r Result) String() string {
	return fmt.Sprintf("%s: %s, %d ch, %.0f Hz, %d-bit, %d frames (%.3fs), zero payload: %v, %s",
		r.Path, r.Container, r.Channels, r.SampleRate, r.SampleWidth*8, r.Frames, r.Duration(), r.ZeroPayload, r.Report)
}

// File parses path and analyzes its payload. The container is picked by
// extension; an AIFF file is reported as AIFF-C if its FORM type says so.
// A nil analyzer allocates a fresh one.
func File(path string, analyzer *dsp.Analyzer) (Result, error) {
	if analyzer == nil {
		var err error
		if analyzer, err = dsp.NewAnalyzer(); err != nil {
			return Result{}, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	res := Result{Path: path, Container: silence.ContainerForPath(path)}

	var raw []byte
	var data [][]float32

	if res.Container == silence.ContainerWAV {
		r, err := wavfile.NewReader(f)
		if err != nil {
			return res, err
		}

		if raw, err = r.ReadAll(); err != nil {
			return res, err
		}

		format := r.Format()
		res.Channels = format.Channels
		res.SampleRate = float64(format.SampleRate)
		res.SampleWidth = format.SampleWidth
		res.Frames = r.NumFrames()
		data = wavfile.Decode(raw, format)
	} else {
		af, err := aiff.Parse(f)
		if err != nil {
			return res, err
		}

		res.Container = silence.ContainerAIFF
		if af.Compressed {
			res.Container = silence.ContainerAIFC
		}

		res.Channels = af.NumChannels
		res.SampleRate = af.SampleRate
		res.SampleWidth = af.BitsPerSample / 8
		res.Frames = int64(af.NumFrames)
		raw, data = af.Raw, af.Data
	}

	res.ZeroPayload = allZero(raw)

	res.Report, err = analyzer.Analyze(data)
	if err != nil {
		return res, fmt.Errorf("analysis failed: %w", err)
	}

	return res, nil
}

func allZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}

	return true
}
