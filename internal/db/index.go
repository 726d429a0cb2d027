package db

import (
	"errors"
	"strconv"
)

// StorageType is the key type an FT index covers.
type StorageType string

// StorageHash indexes Redis hashes. It is the only layout ragchat writes.
const StorageHash StorageType = "HASH"

// DistanceMetric used by vector fields.
type DistanceMetric string

const (
	// DistanceCosine is cosine distance (1 - cosine similarity).
	DistanceCosine DistanceMetric = "COSINE"
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
)

// VectorAlgorithm selects the ANN structure behind a vector field.
type VectorAlgorithm string

const (
	// VectorHNSW is the graph index.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat is brute force.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates schema field kinds.
type IndexFieldType int

const (
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag IndexFieldType = iota
	// IndexFieldNumeric is a numeric range field.
	IndexFieldNumeric
	// IndexFieldVector is a FLOAT32 vector field.
	IndexFieldVector
)

// IndexField is one SCHEMA entry of FT.CREATE.
type IndexField struct {
	Name  string
	Alias string
	Type  IndexFieldType

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int
	VectorEFConstruct int
}

// IndexDefinition is the input of FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate checks that the definition can be sent to the server.
func (idx *IndexDefinition) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name must match [a-zA-Z0-9_:-]+")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at position " + strconv.Itoa(i))
		}
		name := f.Name
		if f.Alias != "" {
			name = f.Alias
		}
		if _, dup := seen[name]; dup {
			return errors.New("duplicate field name: " + name)
		}
		seen[name] = struct{}{}

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return errors.New("vector field " + name + " requires positive DIM")
		}
	}
	return nil
}

// IsValidIdentifier reports whether s is non-empty and matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
