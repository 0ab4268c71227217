package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmpty is wrapped by ParseError when the stream has no header row.
var ErrEmpty = errors.New("no header row")

// ErrNoRows is wrapped by ParseError when the stream has a header but no data.
var ErrNoRows = errors.New("no data rows")

// ParseError reports a stream that could not be read as delimited text.
// Line is 1-based and zero when the failure is not tied to a line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadOptions tunes Load. The zero value sniffs the delimiter and reads
// everything.
type LoadOptions struct {
	// Delimiter forces a separator; zero means sniff it from the header line.
	Delimiter rune
	// MaxRows stops reading after this many data rows; zero means no limit.
	MaxRows int
	// MaxBytes rejects streams larger than this; zero means no limit.
	MaxBytes int64
}

// candidateDelimiters are tried in order when sniffing; comma wins ties.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Load reads a delimited text stream into a Table. Column names come from
// the first row and cell types from content.
func Load(r io.Reader) (*Table, error) {
	return LoadWithOptions(r, LoadOptions{})
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(r io.Reader, opts LoadOptions) (*Table, error) {
	br := bufio.NewReaderSize(WrapForLoading(r, opts.MaxBytes), 64*1024)

	delim := opts.Delimiter
	if delim == 0 {
		var err error
		if delim, err = sniffDelimiter(br); err != nil {
			return nil, wrapReadError(err, 0)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = 0
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: ErrEmpty}
	}
	if err != nil {
		return nil, wrapReadError(err, 1)
	}

	names := uniqueHeaders(header)
	t := &Table{Columns: make([]*Column, len(names))}
	for i, name := range names {
		t.Columns[i] = &Column{Name: name}
	}

	rows := 0
	for opts.MaxRows == 0 || rows < opts.MaxRows {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapReadError(err, 0)
		}
		for i, raw := range record {
			t.Columns[i].Cells = append(t.Columns[i].Cells, ParseCell(raw))
		}
		rows++
	}

	if rows == 0 {
		return nil, &ParseError{Line: 2, Err: ErrNoRows}
	}
	return t, nil
}

// sniffDelimiter peeks at the header line and picks the candidate that
// occurs most often outside quotes.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	line, err := peekLine(br)
	if err != nil {
		return 0, err
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := countUnquoted(line, d); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best, nil
}

func peekLine(br *bufio.Reader) (string, error) {
	for size := 512; ; size *= 2 {
		if size > br.Size() {
			size = br.Size()
		}
		buf, err := br.Peek(size)
		if i := strings.IndexByte(string(buf), '\n'); i >= 0 {
			return string(buf[:i]), nil
		}
		if err == nil && size < br.Size() {
			continue
		}
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, bufio.ErrBufferFull) {
			return string(buf), nil
		}
		return "", err
	}
}

func countUnquoted(line string, d rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// wrapReadError converts reader failures into ParseError, keeping the
// size limit error recognisable through errors.Is.
func wrapReadError(err error, line int) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Line: line, Err: err}
}
