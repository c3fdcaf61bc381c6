package gallery

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// DefaultKeyColumn is the identity column of the exported feature table
const DefaultKeyColumn = "image_name"

// CSVOptions describes the layout of a reference CSV: one key column
// plus feature columns v1..vD. Any other column becomes an attribute.
type CSVOptions struct {
	KeyColumn string
	Dimension int
}

// ReadCSV parses a reference table. Structural problems (missing columns,
// unparsable or non-finite numbers) are reported as domain.ErrGalleryUnreadable.
func ReadCSV(r io.Reader, opts CSVOptions) ([]domain.ReferenceEntry, error) {
	if opts.KeyColumn == "" {
		opts.KeyColumn = DefaultKeyColumn
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("csv dimension must be positive, got %d", opts.Dimension)
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, unreadable("reference table has no header")
	}
	if err != nil {
		return nil, unreadable("read header: %v", err)
	}

	layout, err := resolveLayout(header, opts)
	if err != nil {
		return nil, err
	}

	var entries []domain.ReferenceEntry
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unreadable("read row %d: %v", row, err)
		}

		entry, err := layout.parse(record, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

type csvLayout struct {
	key        int
	features   []int
	attributes map[int]string
}

func resolveLayout(header []string, opts CSVOptions) (*csvLayout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[name] = i
	}

	key, ok := index[opts.KeyColumn]
	if !ok {
		return nil, unreadable("missing key column %q", opts.KeyColumn)
	}

	layout := &csvLayout{
		key:        key,
		features:   make([]int, opts.Dimension),
		attributes: map[int]string{},
	}
	used := map[int]bool{key: true}
	for i := range opts.Dimension {
		col, ok := index["v"+strconv.Itoa(i+1)]
		if !ok {
			return nil, unreadable("missing feature column v%d (expected v1..v%d)", i+1, opts.Dimension)
		}
		layout.features[i] = col
		used[col] = true
	}
	for name, col := range index {
		if !used[col] {
			layout.attributes[col] = name
		}
	}

	return layout, nil
}

func (l *csvLayout) parse(record []string, row int) (domain.ReferenceEntry, error) {
	key := strings.TrimSpace(record[l.key])
	if key == "" {
		return domain.ReferenceEntry{}, unreadable("row %d: empty identity key", row)
	}

	embedding := make(domain.Embedding, len(l.features))
	for i, col := range l.features {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return domain.ReferenceEntry{}, unreadable("row %d (%s): v%d is not a number", row, key, i+1)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.ReferenceEntry{}, unreadable("row %d (%s): v%d is not finite", row, key, i+1)
		}
		embedding[i] = v
	}

	var attrs map[string]string
	for col, name := range l.attributes {
		if val := strings.TrimSpace(record[col]); val != "" {
			if attrs == nil {
				attrs = make(map[string]string, len(l.attributes))
			}
			attrs[name] = val
		}
	}

	return domain.ReferenceEntry{IdentityKey: key, Embedding: embedding, Attributes: attrs}, nil
}

func unreadable(format string, args ...any) error {
	return domain.ErrGalleryUnreadable.WithError(fmt.Errorf(format, args...))
}

// CSVSource loads the gallery from a CSV file on disk
type CSVSource struct {
	Path    string
	Options CSVOptions
}

func (s CSVSource) Load(ctx context.Context) ([]domain.ReferenceEntry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, domain.ErrGalleryUnreadable.WithError(fmt.Errorf("open reference table: %w", err))
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f, s.Options)
}
