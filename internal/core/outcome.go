package core

import (
	"strings"
	"time"
)

// Status is the overall result of a batch.
type Status int

const (
	// StatusSuccess means every file imported without errors.
	StatusSuccess Status = iota
	// StatusPartialFailure means some rows or files failed but at least one
	// file imported cleanly or at least one item was created.
	StatusPartialFailure
	// StatusFailure means nothing was imported.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartialFailure:
		return "partial_failure"
	case StatusFailure:
		return "failure"
	}
	return "unknown"
}

// MarshalText lets the status appear by name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FileResult is the outcome of importing one file.
type FileResult struct {
	Path    string
	Created int
	Skipped int // blank or short rows dropped without an error
	Errors  []*ImportError
}

// Succeeded reports whether the file imported without any error.
func (f FileResult) Succeeded() bool {
	return len(f.Errors) == 0
}

// Message renders the file's failure text, or "Success".
func (f FileResult) Message() string {
	if f.Succeeded() {
		return "Success"
	}
	if len(f.Errors) == 1 && !f.Errors[0].Kind.RowLevel() {
		return f.Errors[0].Error()
	}
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return "Some row errors: " + strings.Join(msgs, ", ")
}

// ImportOutcome is the consolidated result of one ImportBatch call.
// It is not modified after ImportBatch returns.
type ImportOutcome struct {
	BatchID  string
	Status   Status
	Files    []FileResult
	Duration time.Duration
}

// Success reports whether every file imported cleanly.
func (o *ImportOutcome) Success() bool {
	return o.Status == StatusSuccess
}

// Created is the number of items created across all files.
func (o *ImportOutcome) Created() int {
	n := 0
	for _, f := range o.Files {
		n += f.Created
	}
	return n
}

// Errors flattens every recorded error in file then row order.
func (o *ImportOutcome) Errors() []*ImportError {
	var all []*ImportError
	for _, f := range o.Files {
		all = append(all, f.Errors...)
	}
	return all
}

// Message renders the single summary string shown to users.
func (o *ImportOutcome) Message() string {
	var failures []string
	for _, f := range o.Files {
		if !f.Succeeded() {
			failures = append(failures, f.Message())
		}
	}
	if len(failures) == 0 {
		return "All files processed successfully."
	}
	return "Some errors occurred: " + strings.Join(failures, "; ")
}

// finish derives the batch status from the file results.
func (o *ImportOutcome) finish() {
	clean := 0
	for _, f := range o.Files {
		if f.Succeeded() {
			clean++
		}
	}
	switch {
	case clean == len(o.Files):
		o.Status = StatusSuccess
	case clean > 0 || o.Created() > 0:
		o.Status = StatusPartialFailure
	default:
		o.Status = StatusFailure
	}
}
