package tabular

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

type row struct {
	Name string
	Note string
}

var cols = []Column[row]{
	{Header: "name", Value: func(r row) string { return r.Name }},
	{Header: "note", Value: func(r row) string { return r.Note }},
}

func TestQuote(t *testing.T) {
	got := Quote(`He said "hi", twice`)
	want := `"He said ""hi"", twice"`
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestRender(t *testing.T) {
	t.Run("headers only", func(t *testing.T) {
		if got := Render(cols, nil); got != "name,note" {
			t.Errorf("Expected bare header line, got %q", got)
		}
	})

	t.Run("rows are quoted and newline joined", func(t *testing.T) {
		got := Render(cols, []row{{"Praia", "ok"}, {"Mindelo", ""}})
		want := "name,note\n\"Praia\",\"ok\"\n\"Mindelo\",\"\""
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("standard parser reads cells back", func(t *testing.T) {
		tricky := []row{
			{`He said "hi", twice`, "a,b"},
			{"multi\nline", `""`},
			{"Ribeira Grande de Santiago", "ção"},
		}
		out := Render(cols, tricky)

		recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatalf("Failed to parse export: %v", err)
		}
		if len(recs) != len(tricky)+1 {
			t.Fatalf("Expected %d records, got %d", len(tricky)+1, len(recs))
		}
		for i, r := range tricky {
			if recs[i+1][0] != r.Name || recs[i+1][1] != r.Note {
				t.Errorf("Row %d: expected %q/%q, got %q/%q", i, r.Name, r.Note, recs[i+1][0], recs[i+1][1])
			}
		}
	})
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	if got := Filename("ocorrencias", at); got != "ocorrencias-2026-10-15.csv" {
		t.Errorf("Unexpected filename %s", got)
	}
}
