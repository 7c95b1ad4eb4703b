package records

import (
	"context"
	"errors"
	"io"
	"testing"

	"terradjunto/internal/geo"
	"terradjunto/internal/models"
	"terradjunto/internal/storage"
)

type fakeArchive struct {
	uploaded map[string][]byte
	deleted  []string
}

func (f *fakeArchive) Upload(ctx context.Context, prefix string, body io.Reader, contentType, ext string) (storage.Object, error) {
	data, _ := io.ReadAll(body)
	key := storage.ObjectKey(prefix, ext)
	f.uploaded[key] = data
	return storage.Object{Key: key}, nil
}

func (f *fakeArchive) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

const pointLayer = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[-23.5,14.9]},"properties":{}}]}`

func TestDatasetVisibility(t *testing.T) {
	ctx := context.Background()
	s := NewDatasets(setupKV(t))

	d, err := s.Add(ctx, models.Dataset{Name: "Bairros", Type: models.DatasetGeoJSON, Active: true, Features: []byte(pointLayer)})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if d.Scope != models.ScopeHeader {
		t.Errorf("Expected default scope header, got %q", d.Scope)
	}
	if got := s.Visible(ctx, models.ScopeHeader); len(got) != 1 {
		t.Fatalf("Expected dataset on the general map, got %d", len(got))
	}

	if d, ok := s.Toggle(ctx, d.ID); !ok || d.Active {
		t.Fatalf("Expected toggle to deactivate, got %+v, %v", d, ok)
	}
	if got := s.Visible(ctx, models.ScopeHeader); len(got) != 0 {
		t.Errorf("Inactive dataset still visible: %+v", got)
	}
	s.Toggle(ctx, d.ID)

	if _, ok, err := s.SetScope(ctx, d.ID, models.ScopeParticipate); !ok || err != nil {
		t.Fatalf("SetScope failed: %v, %v", ok, err)
	}
	if len(s.Visible(ctx, models.ScopeHeader)) != 0 || len(s.Visible(ctx, models.ScopeParticipate)) != 1 {
		t.Error("Expected dataset to move to the participation maps")
	}
	if _, _, err := s.SetScope(ctx, d.ID, "footer"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for bad scope, got %v", err)
	}

	// active but without geometry is never drawn
	s.Add(ctx, models.Dataset{Name: "Lotes", Type: models.DatasetShapefile, Active: true})
	if got := s.Visible(ctx, models.ScopeHeader); len(got) != 0 {
		t.Errorf("Dataset without features should not be visible, got %+v", got)
	}

	if _, err := s.Add(ctx, models.Dataset{Type: models.DatasetCSV}); !errors.Is(err, ErrRequired) {
		t.Errorf("Expected missing name, got %v", err)
	}
}

func TestDatasetIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		s := NewDatasets(setupKV(t))
		d, res, err := s.Ingest(ctx, nil, Upload{
			Filename: "uploads/Ecopontos.csv",
			Data:     []byte("nome,lat,lon\nPlateau,14.91,-23.51\nfora,,\n"),
		})
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if d.Name != "Ecopontos" || d.Type != models.DatasetCSV || !d.Active || d.Scope != models.ScopeHeader {
			t.Errorf("Unexpected dataset %+v", d)
		}
		if res.Count != 1 || res.Skipped != 1 {
			t.Errorf("Expected 1 feature and 1 skipped, got %d/%d", res.Count, res.Skipped)
		}
		if d.Meta.OriginalName != "Ecopontos.csv" || d.Meta.Size == 0 {
			t.Errorf("Unexpected meta %+v", d.Meta)
		}
		if b := geo.ComputeBoundsJSON(d.Features); b == nil || b.MinLat() != 14.91 {
			t.Errorf("Expected bounds around the point, got %v", b)
		}
	})

	t.Run("opaque archived", func(t *testing.T) {
		s := NewDatasets(setupKV(t))
		archive := &fakeArchive{uploaded: map[string][]byte{}}
		d, res, err := s.Ingest(ctx, archive, Upload{Filename: "lotes.zip", Name: "Lotes", Scope: models.ScopeParticipate, Data: []byte("PK")})
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if !res.Opaque || d.Active || d.Features != nil {
			t.Errorf("Expected inactive metadata-only dataset, got %+v", d)
		}
		if d.Meta.ObjectKey == "" || string(archive.uploaded[d.Meta.ObjectKey]) != "PK" {
			t.Errorf("Expected source archived, got key %q", d.Meta.ObjectKey)
		}

		if !s.Delete(ctx, archive, d.ID) {
			t.Fatal("Expected delete to find the dataset")
		}
		if len(archive.deleted) != 1 || archive.deleted[0] != d.Meta.ObjectKey {
			t.Errorf("Expected archived object removed, got %v", archive.deleted)
		}
		if s.Delete(ctx, archive, d.ID) {
			t.Error("Expected second delete to report false")
		}
	})

	t.Run("rejected", func(t *testing.T) {
		s := NewDatasets(setupKV(t))
		if _, _, err := s.Ingest(ctx, nil, Upload{Filename: "planta.dwg", Data: []byte("x")}); !errors.Is(err, geo.ErrUnsupportedFormat) {
			t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
		}
		if _, _, err := s.Ingest(ctx, nil, Upload{Filename: "p.csv", Data: []byte("a,b\n1,2\n")}); !errors.Is(err, geo.ErrInvalidCSV) {
			t.Errorf("Expected ErrInvalidCSV, got %v", err)
		}
		if _, _, err := s.Ingest(ctx, nil, Upload{Filename: "p.geojson", Scope: "sidebar", Data: []byte(pointLayer)}); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Expected ErrInvalidValue for bad scope, got %v", err)
		}
		archive := &fakeArchive{uploaded: map[string][]byte{}}
		if _, _, err := s.Ingest(ctx, archive, Upload{Filename: "lotes.gpkg", Scope: "sidebar", Data: []byte("GP")}); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Expected ErrInvalidValue for bad scope, got %v", err)
		}
		if len(archive.uploaded) != 0 {
			t.Errorf("Rejected opaque upload was archived: %v", archive.uploaded)
		}
		if got := s.List(ctx); len(got) != 0 {
			t.Errorf("Rejected uploads must not be stored, got %d", len(got))
		}
	})
}

func TestLegislationFilesAdd(t *testing.T) {
	ctx := context.Background()
	s := NewLegislationFiles(setupKV(t))

	if _, err := s.Add(ctx, models.LegislationFile{Title: "Decreto", Category: "saude"}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected invalid category, got %v", err)
	}
	f, err := s.Add(ctx, models.LegislationFile{Title: "Decreto", Category: models.CategoryWaste})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if f.FullText == "" || f.ID == "" {
		t.Errorf("Expected defaults filled, got %+v", f)
	}
}
