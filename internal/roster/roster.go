package roster

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rickgao/vessel-tracker/internal/model"
)

// Errors
var (
	ErrSourceNotFound = errors.New("roster source not found")
	ErrNoVessels      = errors.New("roster has no valid vessels")
)

// Provider supplies the tracked vessels.
type Provider interface {
	// Load returns vessels in source order with unique ids.
	Load() ([]model.VesselRef, error)
}

// Static is an in-memory roster, typically from the config file.
type Static []model.VesselRef

// Load returns the cleaned entries.
func (s Static) Load() ([]model.VesselRef, error) {
	b := newBuilder()
	for _, ref := range s {
		b.add(ref.ID, ref.DisplayName)
	}
	return b.result()
}

// LoadOrEmpty loads p and degrades to an empty roster on failure.
func LoadOrEmpty(p Provider, logger *slog.Logger) []model.VesselRef {
	if logger == nil {
		logger = slog.Default()
	}

	refs, err := p.Load()
	if err != nil {
		logger.Warn("no vessels loaded, subscription will be unfiltered", "error", err)
		return []model.VesselRef{}
	}

	logger.Info("roster loaded", "vessels", len(refs))
	return refs
}

// builder collects entries, skipping invalid rows. A repeated id keeps its
// first position and takes the later name.
type builder struct {
	refs  []model.VesselRef
	index map[string]int
}

func newBuilder() *builder {
	return &builder{index: make(map[string]int)}
}

func (b *builder) add(id, name string) bool {
	id = strings.TrimSpace(id)
	name = cleanName(name)
	if id == "" || strings.EqualFold(id, "none") || name == "" {
		return false
	}

	if i, ok := b.index[id]; ok {
		b.refs[i].DisplayName = name
		return true
	}
	b.index[id] = len(b.refs)
	b.refs = append(b.refs, model.VesselRef{ID: id, DisplayName: name})
	return true
}

func (b *builder) result() ([]model.VesselRef, error) {
	if len(b.refs) == 0 {
		return nil, ErrNoVessels
	}
	return b.refs, nil
}

// cleanName trims and NFC-normalizes a display name.
func cleanName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// String renders a short summary for logs.
func String(refs []model.VesselRef) string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return fmt.Sprintf("%d vessels [%s]", len(refs), strings.Join(ids, ", "))
}
