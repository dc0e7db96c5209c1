package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rickgao/vessel-tracker/internal/model"
)

// Default CSV layout.
const (
	DefaultDelimiter  = ';'
	DefaultIDColumn   = "MMSI"
	DefaultNameColumn = "Name"
)

// CSVProvider reads a delimited file with a header row.
type CSVProvider struct {
	Path       string
	Delimiter  rune   // 0 = ';'
	IDColumn   string // "" = "MMSI"
	NameColumn string // "" = "Name"
}

// NewCSVProvider returns a provider using the default layout.
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{Path: path}
}

// Load reads the file.
func (p *CSVProvider) Load() ([]model.VesselRef, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, p.Path)
		}
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	refs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path, err)
	}
	return refs, nil
}

// Parse reads roster rows from r.
func (p *CSVProvider) Parse(r io.Reader) ([]model.VesselRef, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoVessels
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol, nameCol := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case p.idColumn():
			idCol = i
		case p.nameColumn():
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("%w: header %v lacks %q or %q", ErrNoVessels, header, p.idColumn(), p.nameColumn())
	}

	b := newBuilder()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if idCol >= len(record) || nameCol >= len(record) {
			continue
		}
		b.add(record[idCol], record[nameCol])
	}

	return b.result()
}

func (p *CSVProvider) delimiter() rune {
	if p.Delimiter == 0 {
		return DefaultDelimiter
	}
	return p.Delimiter
}

func (p *CSVProvider) idColumn() string {
	if p.IDColumn == "" {
		return DefaultIDColumn
	}
	return p.IDColumn
}

func (p *CSVProvider) nameColumn() string {
	if p.NameColumn == "" {
		return DefaultNameColumn
	}
	return p.NameColumn
}
