package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies an import failure.
type ErrorKind int

const (
	KindProcessing ErrorKind = iota
	KindFileNotFound
	KindUnsupportedFileType
	KindEmptyOrInvalidFile
	KindHomeNotFound
	KindSectionNotFound
	KindDuplicateItem
	KindUnsupportedImageExtension
	KindImageUploadFailed
	KindContentPersistFailed
	KindTooFewColumns
	KindMissingName
	KindMalformedRow
)

var kindNames = map[ErrorKind]string{
	KindProcessing:                "ProcessingError",
	KindFileNotFound:              "FileNotFound",
	KindUnsupportedFileType:       "UnsupportedFileType",
	KindEmptyOrInvalidFile:        "EmptyOrInvalidFile",
	KindHomeNotFound:              "HomeNotFound",
	KindSectionNotFound:           "SectionNotFound",
	KindDuplicateItem:             "DuplicateItem",
	KindUnsupportedImageExtension: "UnsupportedImageExtension",
	KindImageUploadFailed:         "ImageUploadFailed",
	KindContentPersistFailed:      "ContentPersistFailed",
	KindTooFewColumns:             "TooFewColumns",
	KindMissingName:               "MissingName",
	KindMalformedRow:              "MalformedRow",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText lets the kind appear by name in JSON.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// RowLevel reports whether the kind applies to a single row rather than a
// whole file.
func (k ErrorKind) RowLevel() bool {
	switch k {
	case KindDuplicateItem, KindUnsupportedImageExtension, KindImageUploadFailed,
		KindContentPersistFailed, KindTooFewColumns, KindMissingName, KindMalformedRow:
		return true
	}
	return false
}

// Sentinels for errors.Is matching against an *ImportError.
var (
	ErrProcessing                = errors.New("processing error")
	ErrFileNotFound              = errors.New("file not found")
	ErrUnsupportedFileType       = errors.New("unsupported file type")
	ErrEmptyOrInvalidFile        = errors.New("empty or invalid file")
	ErrHomeNotFound              = errors.New("home node not found")
	ErrSectionNotFound           = errors.New("section node not found")
	ErrDuplicateItem             = errors.New("duplicate item")
	ErrUnsupportedImageExtension = errors.New("unsupported image extension")
	ErrImageUploadFailed         = errors.New("image upload failed")
	ErrContentPersistFailed      = errors.New("content persist failed")
	ErrTooFewColumns             = errors.New("too few columns")
	ErrMissingName               = errors.New("missing item name")
	ErrMalformedRow              = errors.New("malformed row")
)

var kindSentinels = map[ErrorKind]error{
	KindProcessing:                ErrProcessing,
	KindFileNotFound:              ErrFileNotFound,
	KindUnsupportedFileType:       ErrUnsupportedFileType,
	KindEmptyOrInvalidFile:        ErrEmptyOrInvalidFile,
	KindHomeNotFound:              ErrHomeNotFound,
	KindSectionNotFound:           ErrSectionNotFound,
	KindDuplicateItem:             ErrDuplicateItem,
	KindUnsupportedImageExtension: ErrUnsupportedImageExtension,
	KindImageUploadFailed:         ErrImageUploadFailed,
	KindContentPersistFailed:      ErrContentPersistFailed,
	KindTooFewColumns:             ErrTooFewColumns,
	KindMissingName:               ErrMissingName,
	KindMalformedRow:              ErrMalformedRow,
}

// Request-level and collaborator errors.
var (
	// ErrNoFiles is returned by ImportBatch when no paths are given.
	ErrNoFiles = errors.New("no files provided")

	// ErrInvalidRequest wraps validation failures of the batch arguments.
	ErrInvalidRequest = errors.New("invalid import request")

	// ErrMediaNotFound is returned by MediaRepository.GetByID.
	ErrMediaNotFound = errors.New("media not found")

	// ErrImageRejected is returned by ImageIngestor.Ingest when the path is
	// empty or its extension is not allowed.
	ErrImageRejected = errors.New("image rejected")
)

// ImportError is one failure recorded while importing a batch.
type ImportError struct {
	Kind   ErrorKind
	File   string
	Row    int    // 1-indexed source row, 0 for file-level errors
	Value  string // offending value: item name, extension, file type
	Detail string
	Err    error
}

func (e *ImportError) Error() string {
	switch e.Kind {
	case KindFileNotFound:
		return fmt.Sprintf("File not found: %s", e.File)
	case KindUnsupportedFileType:
		return fmt.Sprintf("Unsupported file type: %s", e.Value)
	case KindEmptyOrInvalidFile:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Detail, e.Err)
		}
		return e.Detail
	case KindHomeNotFound:
		return fmt.Sprintf("Home node not found (type %q)", e.Value)
	case KindSectionNotFound:
		return fmt.Sprintf("Section node not found (type %q)", e.Value)
	case KindDuplicateItem:
		return fmt.Sprintf("Duplicate item: %s (Row %d)", e.Value, e.Row)
	case KindUnsupportedImageExtension:
		return fmt.Sprintf("Image extension '%s' not allowed (Row %d)", e.Value, e.Row)
	case KindImageUploadFailed:
		return fmt.Sprintf("Image upload failed for row %d", e.Row)
	case KindContentPersistFailed:
		return fmt.Sprintf("Content item %q could not be saved (Row %d)", e.Value, e.Row)
	case KindTooFewColumns:
		return fmt.Sprintf("Expected %d columns, got %s (Row %d)", RowWidth, e.Value, e.Row)
	case KindMissingName:
		return fmt.Sprintf("Missing item name (Row %d)", e.Row)
	case KindMalformedRow:
		return fmt.Sprintf("Malformed row: %v (Row %d)", e.Err, e.Row)
	}

	msg := "Error processing " + e.File
	if e.Row > 0 {
		msg += fmt.Sprintf(" (Row %d)", e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ImportError) Unwrap() error { return e.Err }

// MarshalJSON renders the error as its kind, location, support code and
// message. The wrapped cause appears only through the message.
func (e *ImportError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    ErrorKind `json:"kind"`
		Code    string    `json:"code"`
		File    string    `json:"file,omitempty"`
		Row     int       `json:"row,omitempty"`
		Value   string    `json:"value,omitempty"`
		Message string    `json:"message"`
	}{e.Kind, MapError(e).Code, e.File, e.Row, e.Value, e.Error()})
}

// Is matches the sentinel for the error's kind.
func (e *ImportError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// fileError builds a file-level error.
func fileError(kind ErrorKind, file string, err error) *ImportError {
	return &ImportError{Kind: kind, File: file, Err: err}
}

// rowError builds a row-level error.
func rowError(kind ErrorKind, file string, row ImportRow, value string, err error) *ImportError {
	return &ImportError{Kind: kind, File: file, Row: row.Line, Value: value, Err: err}
}
