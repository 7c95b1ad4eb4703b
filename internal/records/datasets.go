package records

import (
	"context"
	"fmt"
	"time"

	"terradjunto/internal/models"
	"terradjunto/internal/store"
)

// Datasets owns the adminDatasets slot.
type Datasets struct {
	*Collection[models.Dataset]
}

func NewDatasets(kv store.KV) *Datasets {
	return &Datasets{NewCollection(kv, store.KeyDatasets, "datasets", (*models.Dataset).Upgrade)}
}

func validateDataset(d models.Dataset) error {
	if err := required("name", d.Name); err != nil {
		return err
	}
	if d.Scope != "" && d.Scope != models.ScopeHeader && d.Scope != models.ScopeParticipate {
		return fmt.Errorf("%w: scope", ErrInvalidValue)
	}
	return nil
}

// Add stores an ingested dataset, assigning id and creation time.
func (s *Datasets) Add(ctx context.Context, d models.Dataset) (models.Dataset, error) {
	if err := validateDataset(d); err != nil {
		return d, err
	}
	d.ID = NewID()
	d.CreatedAt = time.Now().UTC()
	d.Upgrade()
	return s.Create(ctx, d), nil
}

// Toggle flips the active flag.
func (s *Datasets) Toggle(ctx context.Context, id string) (models.Dataset, bool) {
	return s.Update(ctx, id, func(d *models.Dataset) { d.Active = !d.Active })
}

// SetScope moves a dataset between the general map and participation maps.
func (s *Datasets) SetScope(ctx context.Context, id, scope string) (models.Dataset, bool, error) {
	if scope != models.ScopeHeader && scope != models.ScopeParticipate {
		return models.Dataset{}, false, fmt.Errorf("%w: scope", ErrInvalidValue)
	}
	d, ok := s.Update(ctx, id, func(d *models.Dataset) { d.Scope = scope })
	return d, ok, nil
}

// Visible lists active datasets in scope that carry geometry.
func (s *Datasets) Visible(ctx context.Context, scope string) []models.Dataset {
	return Filter(s.List(ctx), func(d models.Dataset) bool {
		return d.Active && d.Scope == scope && len(d.Features) > 0
	})
}

func (s *Datasets) Search(ctx context.Context, q Query) []models.Dataset {
	return Filter(s.List(ctx), func(d models.Dataset) bool {
		if q.Kind != "" && d.Type != q.Kind {
			return false
		}
		return MatchQuery(q.Text, d.Name, d.Meta.OriginalName)
	})
}

// LegislationFiles owns the customLegislationFiles slot.
type LegislationFiles struct {
	*Collection[models.LegislationFile]
}

func NewLegislationFiles(kv store.KV) *LegislationFiles {
	return &LegislationFiles{NewCollection(kv, store.KeyLegislationFiles, "legislation", (*models.LegislationFile).Upgrade)}
}

func (s *LegislationFiles) Add(ctx context.Context, f models.LegislationFile) (models.LegislationFile, error) {
	if err := required("title", f.Title); err != nil {
		return f, err
	}
	if f.Category != models.CategoryPlanning && f.Category != models.CategoryWaste {
		return f, fmt.Errorf("%w: category", ErrInvalidValue)
	}
	if f.FullText == "" {
		f.FullText = "Texto integral disponível no documento anexo."
	}
	f.ID = NewID()
	f.CreatedAt = time.Now().UTC()
	f.Upgrade()
	return s.Create(ctx, f), nil
}

// NewLegislationPDFs binds the legacy PDF uploader slot.
func NewLegislationPDFs(kv store.KV) *Collection[models.LegislationPDF] {
	return NewCollection(kv, store.KeyLegislationPDFs, "legislation-pdfs", (*models.LegislationPDF).Upgrade)
}
