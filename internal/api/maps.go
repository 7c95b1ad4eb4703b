package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"terradjunto/internal/geo"
	"terradjunto/internal/i18n"
	"terradjunto/internal/models"
	"terradjunto/internal/records"

	"github.com/go-chi/chi/v5"
)

// datasetSummary is a dataset without its geometry, for admin lists.
type datasetSummary struct {
	models.Dataset
	Features json.RawMessage `json:"features,omitempty"`
	Bounds   *geo.Bounds     `json:"bounds"`
}

func summarizeDataset(d models.Dataset) datasetSummary {
	return datasetSummary{Dataset: d, Bounds: geo.ComputeBoundsJSON(d.Features)}
}

// Layer is one map overlay served to citizens.
type Layer struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Features json.RawMessage `json:"features"`
	Bounds   *geo.Bounds     `json:"bounds"`
}

func (a *API) mapLayers(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = models.ScopeHeader
	}
	if scope != models.ScopeHeader && scope != models.ScopeParticipate {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidValue, "field", "scope")
		return
	}

	layers := []Layer{}
	var bounds []*geo.Bounds
	for _, d := range a.datasets.Visible(r.Context(), scope) {
		b := geo.ComputeBoundsJSON(d.Features)
		layers = append(layers, Layer{ID: d.ID, Name: d.Name, Type: d.Type, Features: d.Features, Bounds: b})
		bounds = append(bounds, b)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"layers": layers,
		"bounds": geo.UnionBounds(bounds...),
	})
}

// Admin dataset handlers

func (a *API) listDatasets(w http.ResponseWriter, r *http.Request) {
	items := a.datasets.Search(r.Context(), queryFrom(r))
	out := make([]datasetSummary, len(items))
	for i, d := range items {
		out[i] = summarizeDataset(d)
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *API) uploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormRequired, "field", "file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.ErrProcessing)
		return
	}

	d, res, err := a.datasets.Ingest(r.Context(), a.archive, records.Upload{
		Filename: header.Filename,
		Name:     r.FormValue("name"),
		Scope:    r.FormValue("scope"),
		Data:     data,
	})
	switch {
	case errors.Is(err, geo.ErrUnsupportedFormat):
		a.fail(w, r, http.StatusBadRequest, i18n.ErrUnsupportedFormat, "ext", strings.ToLower(filepath.Ext(header.Filename)))
		return
	case errors.Is(err, geo.ErrInvalidCSV):
		a.fail(w, r, http.StatusBadRequest, i18n.ErrInvalidCSV, "detail", field(err, geo.ErrInvalidCSV))
		return
	case errors.Is(err, geo.ErrMalformed):
		a.fail(w, r, http.StatusBadRequest, i18n.ErrProcessing)
		return
	case err != nil:
		a.failValidation(w, r, err)
		return
	}

	lang := a.lang(r)
	notice := i18n.T(lang, i18n.DatasetIngested, "name", d.Name, "count", strconv.Itoa(res.Count))
	if res.Opaque {
		notice = i18n.T(lang, i18n.NoticeOpaqueDataset)
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"dataset": summarizeDataset(d),
		"notice":  notice,
		"skipped": res.Skipped,
	})
}

func (a *API) datasetBounds(w http.ResponseWriter, r *http.Request) {
	d, ok := a.datasets.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"bounds": geo.ComputeBoundsJSON(d.Features)})
}

func (a *API) toggleDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := a.datasets.Toggle(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
		return
	}
	respondJSON(w, http.StatusOK, summarizeDataset(d))
}

func (a *API) setDatasetScope(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}

	d, ok, err := a.datasets.SetScope(r.Context(), chi.URLParam(r, "id"), req.Scope)
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	if !ok {
		a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
		return
	}
	respondJSON(w, http.StatusOK, summarizeDataset(d))
}

func (a *API) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if !a.datasets.Delete(r.Context(), a.archive, chi.URLParam(r, "id")) {
		a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
