package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	msgCSVHeaderOnly = "CSV file is empty or only contains headers"
	msgCSVInvalid    = "Invalid CSV file"
)

// Quoting failures on a single line. The line is reported and the rest of
// the file is still read.
var (
	errUnterminatedQuote = errors.New("quoted field is not closed")
	errTextAfterQuote    = errors.New("unexpected text after closing quote")
)

// CSVParser reads comma-delimited files one physical line at a time. Fields
// containing a comma must be quoted; quotes are stripped and whitespace
// around each field, quoted or not, is trimmed. A quoting error is confined
// to its own line. Whitespace-only lines are ignored. A UTF-8 byte order
// mark is dropped and invalid UTF-8 is replaced with U+FFFD.
type CSVParser struct{}

// Open reads the header and the first data line, failing with
// KindEmptyOrInvalidFile when the file has no data lines.
func (CSVParser) Open(_ context.Context, path string) (RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	decoded := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	rows := &csvRows{file: f, lines: bufio.NewReader(decoded)}

	if _, ok := rows.nextLine(); !ok {
		f.Close()
		if rows.err != nil {
			return nil, invalidFile(path, msgCSVInvalid, rows.err)
		}
		return nil, invalidFile(path, msgCSVHeaderOnly, nil)
	}

	// Blank lines are never rows, so a header followed only by blank lines
	// is treated as an empty file.
	if !rows.Next() {
		err := rows.Err()
		f.Close()
		if err != nil {
			return nil, invalidFile(path, msgCSVInvalid, err)
		}
		return nil, invalidFile(path, msgCSVHeaderOnly, nil)
	}
	rows.peeked = true
	return rows, nil
}

type csvRows struct {
	file   *os.File
	lines  *bufio.Reader
	lineNo int
	row    ImportRow
	peeked bool
	err    error
}

// nextLine returns the next non-blank line, trimmed.
func (c *csvRows) nextLine() (string, bool) {
	for c.err == nil {
		line, err := c.lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			c.err = err
			return "", false
		}
		if line == "" && err != nil {
			return "", false
		}
		c.lineNo++

		if line = strings.TrimSpace(line); line != "" {
			return line, true
		}
		if err != nil {
			return "", false
		}
	}
	return "", false
}

func (c *csvRows) Next() bool {
	if c.peeked {
		c.peeked = false
		return true
	}

	line, ok := c.nextLine()
	if !ok {
		return false
	}

	fields, err := splitCSVLine(line)
	if err != nil {
		c.row = ImportRow{Line: c.lineNo, Err: err}
		return true
	}
	c.row = rowFromFields(c.lineNo, fields)
	return true
}

func (c *csvRows) Row() ImportRow { return c.row }
func (c *csvRows) Err() error     { return c.err }
func (c *csvRows) Close() error   { return c.file.Close() }

// splitCSVLine tokenizes one line. A field whose first non-blank character
// is a double quote runs to the matching closing quote, with "" standing
// for a literal quote; only whitespace may follow it before the next comma.
// Quotes inside unquoted fields are kept as written.
func splitCSVLine(line string) ([]string, error) {
	var fields []string
	i := 0
	for {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}

		if i < len(line) && line[i] == '"' {
			var b strings.Builder
			i++
			closed := false
			for i < len(line) {
				if line[i] == '"' {
					if i+1 < len(line) && line[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(line[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("field %d: %w", len(fields)+1, errUnterminatedQuote)
			}
			for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
				i++
			}
			if i < len(line) && line[i] != ',' {
				return nil, fmt.Errorf("field %d: %w", len(fields)+1, errTextAfterQuote)
			}
			fields = append(fields, strings.TrimSpace(b.String()))
		} else {
			end := strings.IndexByte(line[i:], ',')
			if end < 0 {
				end = len(line) - i
			}
			fields = append(fields, strings.TrimSpace(line[i:i+end]))
			i += end
		}

		if i >= len(line) {
			return fields, nil
		}
		i++ // comma
	}
}
