package legislation

import (
	"context"
	"errors"
	"io"
	"testing"

	"terradjunto/internal/models"
	"terradjunto/internal/records"
	"terradjunto/internal/storage"
	"terradjunto/internal/store"
)

func setupKV(t *testing.T) store.KV {
	t.Helper()
	kv, err := store.New(store.Config{Backend: store.BackendSQLite, SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestBuiltIn(t *testing.T) {
	items, err := BuiltIn()
	if err != nil {
		t.Fatalf("BuiltIn failed: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("Expected built-in legislation")
	}
	for _, l := range items {
		if l.ID == "" || l.Title == "" {
			t.Errorf("Incomplete entry %+v", l)
		}
		if l.Category != models.CategoryPlanning && l.Category != models.CategoryWaste {
			t.Errorf("%s: unexpected category %q", l.ID, l.Category)
		}
		if l.Custom {
			t.Errorf("%s: built-in entry marked custom", l.ID)
		}
	}
}

func TestLibraryList(t *testing.T) {
	ctx := context.Background()
	files := records.NewLegislationFiles(setupKV(t))
	lib, err := NewLibrary(files)
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	builtIn := len(lib.List(ctx, Filter{}))

	custom, err := files.Add(ctx, models.LegislationFile{
		Title:    "Regulamento de Resíduos da Praia",
		Category: models.CategoryWaste,
		Tags:     []string{"Praia", "monos"},
		File:     &models.Attachment{Name: "regulamento.pdf", Size: 2048},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	all := lib.List(ctx, Filter{})
	if len(all) != builtIn+1 {
		t.Fatalf("Expected %d entries, got %d", builtIn+1, len(all))
	}
	if all[0].ID != custom.ID || !all[0].Custom {
		t.Errorf("Expected custom file first, got %+v", all[0])
	}

	t.Run("category", func(t *testing.T) {
		for _, l := range lib.List(ctx, Filter{Category: models.CategoryPlanning}) {
			if l.Category != models.CategoryPlanning {
				t.Errorf("Unexpected category %q", l.Category)
			}
		}
	})

	t.Run("tag is case-insensitive", func(t *testing.T) {
		got := lib.List(ctx, Filter{Tag: "praia"})
		if len(got) != 1 || got[0].ID != custom.ID {
			t.Errorf("Expected only the custom file, got %d entries", len(got))
		}
	})

	t.Run("query", func(t *testing.T) {
		got := lib.List(ctx, Filter{Query: "PRAIA"})
		if len(got) != 1 {
			t.Errorf("Expected 1 match, got %d", len(got))
		}
		if got := lib.List(ctx, Filter{Query: "inexistente"}); len(got) != 0 {
			t.Errorf("Expected no match, got %d", len(got))
		}
	})

	t.Run("tags", func(t *testing.T) {
		tags := lib.Tags(ctx)
		seen := map[string]bool{}
		for i, tag := range tags {
			if seen[tag] {
				t.Errorf("Duplicate tag %q", tag)
			}
			seen[tag] = true
			if i > 0 && tags[i-1] > tag {
				t.Errorf("Tags not sorted: %v", tags)
				break
			}
		}
		if !seen["monos"] || !seen["Praia"] {
			t.Errorf("Expected custom tags in %v", tags)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if !files.Remove(ctx, custom.ID) {
			t.Fatal("Expected removal")
		}
		if got := len(lib.List(ctx, Filter{})); got != builtIn {
			t.Errorf("Expected %d entries, got %d", builtIn, got)
		}
	})
}

type fakeArchive struct {
	uploaded map[string]int
	deleted  []string
	fail     bool
}

func (f *fakeArchive) Upload(ctx context.Context, prefix string, body io.Reader, contentType, ext string) (storage.Object, error) {
	if f.fail {
		return storage.Object{}, errors.New("bucket unavailable")
	}
	data, _ := io.ReadAll(body)
	key := storage.ObjectKey(prefix, ext)
	f.uploaded[key] = len(data)
	return storage.Object{Key: key, URL: "https://objects.test/" + key}, nil
}

func (f *fakeArchive) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func TestPDFs(t *testing.T) {
	ctx := context.Background()

	t.Run("archived", func(t *testing.T) {
		archive := &fakeArchive{uploaded: map[string]int{}}
		pdfs := NewPDFs(records.NewLegislationPDFs(setupKV(t)), archive)

		rec, err := pdfs.Upload(ctx, "lei.pdf", "", []byte("%PDF-1.4"))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if rec.Size != 8 || rec.ContentType != "application/pdf" {
			t.Errorf("Unexpected metadata %+v", rec)
		}
		if rec.URL == "" || archive.uploaded[rec.ObjectKey] != 8 {
			t.Errorf("Expected archived object, got %+v", rec)
		}

		if !pdfs.Delete(ctx, rec.ID) {
			t.Fatal("Expected delete")
		}
		if len(archive.deleted) != 1 || archive.deleted[0] != rec.ObjectKey {
			t.Errorf("Expected archived object deleted, got %v", archive.deleted)
		}
		if pdfs.Delete(ctx, rec.ID) {
			t.Error("Second delete should report false")
		}
	})

	t.Run("metadata only", func(t *testing.T) {
		pdfs := NewPDFs(records.NewLegislationPDFs(setupKV(t)), nil)
		rec, err := pdfs.Upload(ctx, "lei.pdf", "application/pdf", []byte("x"))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if rec.URL != "" || rec.ObjectKey != "" {
			t.Errorf("Expected metadata only, got %+v", rec)
		}
		if len(pdfs.List(ctx)) != 1 {
			t.Error("Expected 1 entry")
		}
	})

	t.Run("archive failure keeps entry", func(t *testing.T) {
		pdfs := NewPDFs(records.NewLegislationPDFs(setupKV(t)), &fakeArchive{fail: true})
		rec, err := pdfs.Upload(ctx, "lei.pdf", "", []byte("x"))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if rec.URL != "" {
			t.Errorf("Expected no URL, got %q", rec.URL)
		}
	})

	t.Run("name required", func(t *testing.T) {
		pdfs := NewPDFs(records.NewLegislationPDFs(setupKV(t)), nil)
		if _, err := pdfs.Upload(ctx, "", "", nil); !errors.Is(err, records.ErrRequired) {
			t.Errorf("Expected ErrRequired, got %v", err)
		}
	})
}
