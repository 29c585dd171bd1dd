// Package dsp measures the level and spectrum of decoded audio.
package dsp

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	// AnalysisBlockSize is the FFT size used for the spectral scan.
	AnalysisBlockSize = 4096

	// FloorDB is reported for digital silence.
	FloorDB = -144.0

	// DefaultSilenceThresholdDB is the level below which audio counts as silent.
	DefaultSilenceThresholdDB = -96.0
)

// Report summarizes the level of a block of audio.
type Report struct {
	Channels       int
	Frames         int
	PeakDB         float64 // Absolute sample peak in dBFS
	RMSDB          float64 // RMS over all channels in dBFS
	DCOffset       float64 // Mean sample value over all channels
	SpectralPeakDB float64 // Loudest non-DC FFT bin in dBFS
}

// Silent reports whether both the sample peak and the spectral peak are at or
// below thresholdDB.
func (r Report) Silent(thresholdDB float64) bool {
	return r.PeakDB <= thresholdDB && r.SpectralPeakDB <= thresholdDB
}

// String returns a one-line summary.
func (r Report) String() string {
	return fmt.Sprintf("%d ch, %d frames, peak %.1f dBFS, rms %.1f dBFS, dc %.4f, spectral peak %.1f dBFS",
		r.Channels, r.Frames, r.PeakDB, r.RMSDB, r.DCOffset, r.SpectralPeakDB)
}

// Analyzer measures sample and spectral levels of decoded audio.
// It owns its FFT plan and scratch buffers, so it must not be shared between goroutines.
type Analyzer struct {
	plan     *algofft.PlanRealT[float32, complex64]
	block    []float32
	spectrum []complex64
}

// NewAnalyzer creates an analyzer with an AnalysisBlockSize real FFT plan.
func NewAnalyzer() (*Analyzer, error) {
	plan, err := algofft.NewPlanReal32(AnalysisBlockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create FFT plan for size %d: %w", AnalysisBlockSize, err)
	}

	return &Analyzer{
		plan:     plan,
		block:    make([]float32, AnalysisBlockSize),
		spectrum: make([]complex64, AnalysisBlockSize/2+1),
	}, nil
}

// Analyze measures data, organized as [channel][frame].
func (a *Analyzer) Analyze(data [][]float32) (Report, error) {
	report := Report{
		Channels:       len(data),
		PeakDB:         FloorDB,
		RMSDB:          FloorDB,
		SpectralPeakDB: FloorDB,
	}

	if len(data) > 0 {
		report.Frames = len(data[0])
	}

	var peak, sum, sumSquares float64
	var count int

	for _, ch := range data {
		for _, s := range ch {
			v := float64(s)
			peak = math.Max(peak, math.Abs(v))
			sum += v
			sumSquares += v * v
		}

		count += len(ch)
	}

	if count == 0 {
		return report, nil
	}

	report.PeakDB = linToDB(peak)
	report.RMSDB = linToDB(math.Sqrt(sumSquares / float64(count)))
	report.DCOffset = sum / float64(count)

	var spectralPeak float64

	for _, ch := range data {
		for start := 0; start < len(ch); start += AnalysisBlockSize {
			n := copy(a.block, ch[start:])
			clear(a.block[n:])

			if err := a.plan.Forward(a.spectrum, a.block); err != nil {
				return report, fmt.Errorf("forward FFT failed: %w", err)
			}

			// Skip bin 0: a constant offset is reported as DCOffset instead
			for _, bin := range a.spectrum[1:] {
				mag := math.Hypot(float64(real(bin)), float64(imag(bin))) * 2 / AnalysisBlockSize
				spectralPeak = math.Max(spectralPeak, mag)
			}
		}
	}

	report.SpectralPeakDB = linToDB(spectralPeak)

	return report, nil
}

// Analyze is a convenience wrapper that allocates a fresh Analyzer.
func Analyze(data [][]float32) (Report, error) {
	analyzer, err := NewAnalyzer()
	if err != nil {
		return Report{}, err
	}

	return analyzer.Analyze(data)
}

// linToDB converts linear amplitude to dBFS, floored at FloorDB.
func linToDB(l float64) float64 {
	if l <= 0 {
		return FloorDB
	}

	return math.Max(20*math.Log10(l), FloorDB)
}
