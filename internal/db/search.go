package db

import (
	"encoding/binary"
	"math"
	"strings"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// PreFilter is an FT.SEARCH query expression applied before KNN. Empty means all documents.
	PreFilter    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Score is a similarity in [0,1] for KNN queries.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// TagQuery renders an exact tag match, escaping the value.
func TagQuery(field, value string) string {
	return "@" + field + ":{" + tagEscaper.Replace(value) + "}"
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "\"", "\\\"", "'", "\\'",
	":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)",
	"-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	" ", "\\ ", "|", "\\|", "/", "\\/",
)

// EncodeVector serializes v as little-endian FLOAT32, the layout of VectorHNSW fields.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
