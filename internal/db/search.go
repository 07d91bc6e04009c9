package db

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// VectorToBlob serializes []float32 to the little-endian binary blob
// format stored in document hashes and passed to FT.SEARCH.
func VectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// BlobToVector deserializes a little-endian binary blob back into []float32.
func BlobToVector(blob string) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32([]byte(blob[i*4 : i*4+4]))
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}
