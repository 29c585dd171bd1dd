package silence

// Option overrides one field of the default spec used by CreateSilentAudio.
type Option func(*Spec)

// WithSampleRate sets the frame rate in Hz.
func WithSampleRate(rate int) Option {
	return func(s *Spec) { s.SampleRate = rate }
}

// WithChannels sets the number of interleaved channels.
func WithChannels(n int) Option {
	return func(s *Spec) { s.NumChannels = n }
}

// WithSampleWidth sets the sample width in bytes.
func WithSampleWidth(width int) Option {
	return func(s *Spec) { s.SampleWidth = width }
}

// WithCompression sets the compression type tag and its descriptive name.
func WithCompression(compressionType, compressionName string) Option {
	return func(s *Spec) {
		s.CompressionType = compressionType
		s.CompressionName = compressionName
	}
}

// CreateSilentAudio writes duration seconds of silence to path.
// Unset parameters default to 44100 Hz, mono, 16-bit, "NONE"/"not compressed".
func CreateSilentAudio(path string, duration float64, opts ...Option) error {
	spec := DefaultSpec(duration)
	for _, opt := range opts {
		opt(&spec)
	}

	return Create(path, spec)
}
