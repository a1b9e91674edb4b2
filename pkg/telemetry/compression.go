package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// compressionLevels maps the configured level to a zstd encoder speed
var compressionLevels = map[int]zstd.EncoderLevel{
	1: zstd.SpeedFastest,
	2: zstd.SpeedDefault,
	3: zstd.SpeedBetterCompression,
	4: zstd.SpeedBestCompression,
}

// Compressor encodes telemetry columns for the badger snapshot
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a compressor; level ranges from 1 (fastest) to 4 (best)
func NewCompressor(level int) (*Compressor, error) {
	encLevel, ok := compressionLevels[level]
	if !ok {
		return nil, fmt.Errorf("compression level %d out of range 1-4", level)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// CompressValues XORs each value with its predecessor and zstd-compresses
// the little-endian words
func (c *Compressor) CompressValues(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}

	raw := make([]byte, len(values)*8)
	var prev uint64
	for i, v := range values {
		bits := math.Float64bits(v)
		binary.LittleEndian.PutUint64(raw[i*8:], bits^prev)
		prev = bits
	}

	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// DecompressValues restores count values written by CompressValues
func (c *Compressor) DecompressValues(data []byte, count int) ([]float64, error) {
	if count <= 0 || len(data) == 0 {
		return nil, nil
	}

	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(raw) != count*8 {
		return nil, fmt.Errorf("decompressed %d bytes, expected %d values", len(raw), count)
	}

	values := make([]float64, count)
	var prev uint64
	for i := range values {
		bits := binary.LittleEndian.Uint64(raw[i*8:]) ^ prev
		values[i] = math.Float64frombits(bits)
		prev = bits
	}

	return values, nil
}

// Close releases the zstd encoder and decoder
func (c *Compressor) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
