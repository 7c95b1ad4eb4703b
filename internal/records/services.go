package records

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"terradjunto/internal/metrics"
	"terradjunto/internal/models"
	"terradjunto/internal/store"
)

var (
	// ErrRequired is wrapped with the name of the missing field.
	ErrRequired = errors.New("missing required field")
	// ErrInvalidStatus is returned for a status outside the collection's workflow.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidValue is wrapped with the name of a field holding an unknown enum value.
	ErrInvalidValue = errors.New("invalid value")
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrRequired, field)
	}
	return nil
}

// Query narrows a record list. Empty fields match everything.
type Query struct {
	Text   string
	Status string
	Kind   string // waste kind, participation type
	ItemID string // participation only
}

// Incidents owns the registoOcorrencias slot.
type Incidents struct {
	*Collection[models.Incident]
}

func NewIncidents(kv store.KV) *Incidents {
	return &Incidents{NewCollection(kv, store.KeyIncidents, "incidents", (*models.Incident).Upgrade)}
}

// Submit validates and stores a new report. Anonymous reports drop the reporter fields.
func (s *Incidents) Submit(ctx context.Context, in models.Incident) (models.Incident, error) {
	if err := required("title", in.Title); err != nil {
		return in, err
	}
	if err := required("description", in.Description); err != nil {
		return in, err
	}
	if in.Anonymous {
		in.UserName, in.Email = "", ""
	}
	if in.Urgency == "" {
		in.Urgency = "media"
	}
	in.ID = NewID()
	in.Status = models.IncidentNew
	in.CreatedAt = time.Now().UTC()
	in.Upgrade()
	return s.Create(ctx, in), nil
}

// SetStatus moves one report to st. Unknown ids leave the list untouched and report false.
func (s *Incidents) SetStatus(ctx context.Context, id string, st models.IncidentStatus) (models.Incident, bool, error) {
	if !slices.Contains(models.IncidentStatuses, st) {
		return models.Incident{}, false, fmt.Errorf("%w: %s", ErrInvalidStatus, st)
	}
	r, ok := s.Update(ctx, id, func(r *models.Incident) { r.Status = st })
	if ok {
		metrics.StatusChangesTotal.WithLabelValues(s.Name(), string(st)).Inc()
	}
	return r, ok, nil
}

func (s *Incidents) Search(ctx context.Context, q Query) []models.Incident {
	return Filter(s.List(ctx), func(r models.Incident) bool {
		if q.Status != "" && string(r.Status) != q.Status {
			return false
		}
		return MatchQuery(q.Text, r.Title, r.Description, r.Address, r.UserName, r.Email, r.Category)
	})
}

// Waste owns the wasteRequests slot shared by bulky pickups and illegal dumping reports.
type Waste struct {
	*Collection[models.WasteRequest]
}

func NewWaste(kv store.KV) *Waste {
	return &Waste{NewCollection(kv, store.KeyWasteRequests, "waste", (*models.WasteRequest).Upgrade)}
}

func (s *Waste) Submit(ctx context.Context, in models.WasteRequest) (models.WasteRequest, error) {
	if in.Kind != models.WasteKindBulky && in.Kind != models.WasteKindIllegal {
		return in, fmt.Errorf("%w: kind", ErrInvalidValue)
	}
	if err := required("address", in.Address); err != nil {
		return in, err
	}
	if in.Kind == models.WasteKindBulky {
		if err := required("name", in.Name); err != nil {
			return in, err
		}
		if err := required("phone", in.Phone); err != nil {
			return in, err
		}
	}
	in.ID = NewID()
	in.Status = models.WasteSent
	in.CreatedAt = time.Now().UTC()
	in.Upgrade()
	return s.Create(ctx, in), nil
}

func (s *Waste) SetStatus(ctx context.Context, id string, st models.WasteStatus) (models.WasteRequest, bool, error) {
	if !slices.Contains(models.WasteStatuses, st) {
		return models.WasteRequest{}, false, fmt.Errorf("%w: %s", ErrInvalidStatus, st)
	}
	r, ok := s.Update(ctx, id, func(r *models.WasteRequest) { r.Status = st })
	if ok {
		metrics.StatusChangesTotal.WithLabelValues(s.Name(), string(st)).Inc()
	}
	return r, ok, nil
}

func (s *Waste) Search(ctx context.Context, q Query) []models.WasteRequest {
	return Filter(s.List(ctx), func(r models.WasteRequest) bool {
		if q.Status != "" && string(r.Status) != q.Status {
			return false
		}
		if q.Kind != "" && r.Kind != q.Kind {
			return false
		}
		return MatchQuery(q.Text, r.Name, r.Phone, r.Address, r.Items, r.Description, r.Subtype)
	})
}

// Participation owns the participationRecords slot.
type Participation struct {
	*Collection[models.Participation]
}

func NewParticipation(kv store.KV) *Participation {
	return &Participation{NewCollection(kv, store.KeyParticipation, "participation", (*models.Participation).Upgrade)}
}

func (s *Participation) Submit(ctx context.Context, in models.Participation) (models.Participation, error) {
	if in.Type != "project" && in.Type != "program" {
		return in, fmt.Errorf("%w: type", ErrInvalidValue)
	}
	if err := required("itemId", in.ItemID); err != nil {
		return in, err
	}
	if !slices.Contains(models.Classifications, in.Classification) {
		return in, fmt.Errorf("%w: classification", ErrInvalidValue)
	}
	if err := required("content", in.Content); err != nil {
		return in, err
	}
	in.ID = NewID()
	in.Status = models.ParticipationSent
	in.CreatedAt = time.Now().UTC()
	in.Upgrade()
	return s.Create(ctx, in), nil
}

func (s *Participation) SetStatus(ctx context.Context, id string, st models.ParticipationStatus) (models.Participation, bool, error) {
	if !slices.Contains(models.ParticipationStatuses, st) {
		return models.Participation{}, false, fmt.Errorf("%w: %s", ErrInvalidStatus, st)
	}
	r, ok := s.Update(ctx, id, func(r *models.Participation) { r.Status = st })
	if ok {
		metrics.StatusChangesTotal.WithLabelValues(s.Name(), string(st)).Inc()
	}
	return r, ok, nil
}

func (s *Participation) Search(ctx context.Context, q Query) []models.Participation {
	return Filter(s.List(ctx), func(r models.Participation) bool {
		if q.Status != "" && string(r.Status) != q.Status {
			return false
		}
		if q.Kind != "" && r.Type != q.Kind {
			return false
		}
		if q.ItemID != "" && r.ItemID != q.ItemID {
			return false
		}
		return MatchQuery(q.Text, r.Title, r.Content, r.UserName, r.Municipality, r.Classification)
	})
}

// Published lists the comments visible to citizens for one project or program.
func (s *Participation) Published(ctx context.Context, itemID string) []models.Participation {
	return s.Search(ctx, Query{Status: string(models.ParticipationPublished), ItemID: itemID})
}
