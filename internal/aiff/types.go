package aiff

// Chunk and form identifiers.
const (
	ChunkIDForm  = "FORM"
	FormTypeAIFF = "AIFF"
	FormTypeAIFC = "AIFC"
	ChunkIDFver  = "FVER"
	ChunkIDComm  = "COMM"
	ChunkIDSsnd  = "SSND"
)

// AIFF-C compression types that carry plain PCM.
const (
	CompressionNone = "NONE"
	CompressionTwos = "twos" // big-endian PCM, same bytes as NONE
	CompressionSowt = "sowt" // little-endian PCM
)

// aifcVersion1 is the only FVER timestamp defined for AIFF-C.
const aifcVersion1 uint32 = 0xA2805140

// Chunk sizes in bytes.
const (
	formHeaderSize  = 12 // "FORM" + size + form type
	chunkHeaderSize = 8
	fverChunkSize   = chunkHeaderSize + 4
	commSizeAIFF    = 18 // channels(2) + frames(4) + bits(2) + rate(10)
	ssndPrefixSize  = 8  // offset(4) + blockSize(4)
	maxNameLength   = 255
)

// SupportedCompression reports whether an AIFF-C compression type stores
// uncompressed PCM that this package can read and write.
func SupportedCompression(compressionType string) bool {
	switch compressionType {
	case CompressionNone, CompressionTwos, CompressionSowt:
		return true
	}

	return false
}

// Header describes the layout of an AIFF or AIFF-C file to be written.
type Header struct {
	Channels    int
	SampleWidth int // Bytes per sample per channel (1-4)
	SampleRate  int

	// Compressed selects the AIFF-C form, which carries the compression fields.
	Compressed      bool
	CompressionType string
	CompressionName string
}

// FrameSize returns the number of bytes in one frame.
func (h Header) FrameSize() int {
	return h.Channels * h.SampleWidth
}

// pascalStringSize returns the on-disk size of the compression name,
// including the count byte and the pad byte that keeps it even.
func (h Header) pascalStringSize() int {
	n := 1 + len(h.CompressionName)
	if n%2 != 0 {
		n++
	}

	return n
}

// commSize returns the COMM chunk body size.
func (h Header) commSize() int {
	if !h.Compressed {
		return commSizeAIFF
	}

	return commSizeAIFF + 4 + h.pascalStringSize()
}

// Size returns the number of bytes written before the first sample.
func (h Header) Size() int {
	size := formHeaderSize + chunkHeaderSize + h.commSize() + chunkHeaderSize + ssndPrefixSize
	if h.Compressed {
		size += fverChunkSize
	}

	return size
}

// commOffset returns the absolute offset of the COMM chunk body.
func (h Header) commOffset() int64 {
	offset := int64(formHeaderSize + chunkHeaderSize)
	if h.Compressed {
		offset += fverChunkSize
	}

	return offset
}
