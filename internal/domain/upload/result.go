package upload

import "github.com/kailas-cloud/ragchat/internal/domain/record"

// Status is the outcome of a successfully ingested file.
type Status string

const (
	// StatusIndexed means at least one chunk reached the vector index.
	StatusIndexed Status = "indexed"
	// StatusStored means the file was kept and registered but produced no text.
	StatusStored Status = "stored"
)

// Receipt is returned for a file that reached the registry.
type Receipt struct {
	Document      record.Record
	ChunksIndexed int
	Status        Status
}

// Result is the outcome of one file in an upload batch.
type Result struct {
	filename string
	receipt  Receipt
	err      error
}

// NewOK creates a successful result.
func NewOK(filename string, r Receipt) Result {
	return Result{filename: filename, receipt: r}
}

// NewError creates a failed result.
func NewError(filename string, err error) Result {
	return Result{filename: filename, err: err}
}

// Filename returns the client-supplied filename.
func (r Result) Filename() string { return r.filename }

// OK reports whether the file was ingested.
func (r Result) OK() bool { return r.err == nil }

// Receipt returns the receipt; meaningful only when OK.
func (r Result) Receipt() Receipt { return r.receipt }

// Err returns the failure, if any.
func (r Result) Err() error { return r.err }
