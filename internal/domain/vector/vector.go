// Package vector holds the values exchanged with vector index backends.
package vector

import "math"

// Entry is one vector written to an index together with its text and metadata bag.
type Entry struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// Hit is one search result. Score is a similarity where higher is closer.
type Hit struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
