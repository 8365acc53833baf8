// Package backend provides the vector store adapters the sweep measures:
// a bbolt-backed exact flat scan and an embedded HNSW database persisted
// to SQLite.
package backend

import (
	"encoding/binary"
	"math"

	"vecbench/internal/domain"
)

// checkVectors validates a build input: non-empty, uniform dimensionality.
// Returns the common dimension.
func checkVectors(vectors []domain.Embedding) (int, error) {
	if len(vectors) == 0 {
		return 0, domain.ErrInvalidInput
	}
	dim := len(vectors[0].Values)
	for _, v := range vectors {
		if len(v.Values) != dim {
			return 0, domain.ErrDimensionMismatch
		}
	}
	return dim, nil
}

// encodeVector converts []float32 to a little-endian blob.
func encodeVector(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector converts a little-endian blob back to []float32.
func decodeVector(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
