// Package csvfile holds the shared plumbing for the flat-file stores: opening
// with BOM skipping, header indexing and append-with-header-once writes.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Reader streams rows and resolves columns by normalized header name.
type Reader struct {
	file   *os.File
	csv    *csv.Reader
	colIdx map[string]int
	rowNum int
}

// Open opens path and reads its header row. A missing file is reported with an
// error satisfying errors.Is(err, os.ErrNotExist). An empty file yields io.EOF.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewReaderSize(file, 64*1024)

	// Skip UTF-8 BOM if present
	bom, err := buf.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		buf.Discard(3)
	}

	reader := csv.NewReader(buf)
	reader.FieldsPerRecord = -1

	r := &Reader{file: file, csv: reader, colIdx: make(map[string]int)}

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, err
	}
	r.rowNum = 1
	for i, h := range header {
		key := normalize(h)
		if _, dup := r.colIdx[key]; !dup {
			r.colIdx[key] = i
		}
	}
	return r, nil
}

func normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Require returns an error naming the first missing column.
func (r *Reader) Require(cols ...string) error {
	for _, c := range cols {
		if _, ok := r.colIdx[normalize(c)]; !ok {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

// Next returns the next record, or io.EOF.
func (r *Reader) Next() (Row, error) {
	rec, err := r.csv.Read()
	if err != nil {
		return Row{}, err
	}
	r.rowNum++
	return Row{rec: rec, cols: r.colIdx}, nil
}

// RowNum is the 1-based line of the last record returned, header included.
func (r *Reader) RowNum() int { return r.rowNum }

func (r *Reader) Close() error { return r.file.Close() }

// Row is one record with header-based field access.
type Row struct {
	rec  []string
	cols map[string]int
}

// Get returns the trimmed value of column name, or "" when absent.
func (r Row) Get(name string) string {
	i, ok := r.cols[normalize(name)]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

// Append writes rows to path, creating the file and parent directory as
// needed. The header is written only when the file is new or empty. Existing
// content is never rewritten.
func Append(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			file.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	return file.Close()
}

// IsMissing reports whether err means the source does not exist or has no
// header at all, both of which mean "no data yet" for a fresh deployment.
func IsMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, io.EOF)
}
