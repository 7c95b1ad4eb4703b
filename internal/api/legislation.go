package api

import (
	"io"
	"net/http"

	"terradjunto/internal/i18n"
	"terradjunto/internal/legislation"
	"terradjunto/internal/models"

	"github.com/go-chi/chi/v5"
)

func (a *API) listLegislation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondJSON(w, http.StatusOK, a.library.List(r.Context(), legislation.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
	}))
}

func (a *API) legislationTags(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.library.Tags(r.Context()))
}

// createLegislation takes JSON or a multipart form with "data" and an
// optional "file", of which only name and size are kept.
func (a *API) createLegislation(w http.ResponseWriter, r *http.Request) {
	var in models.LegislationFile
	atts, err := a.decodeFile(w, r, &in)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}
	if len(atts) > 0 {
		in.File = &atts[0]
	}

	rec, err := a.library.Files.Add(r.Context(), in)
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (a *API) decodeFile(w http.ResponseWriter, r *http.Request, dst interface{}) ([]models.Attachment, error) {
	atts, err := a.decodeSubmission(w, r, dst)
	if err != nil || r.MultipartForm == nil {
		return atts, err
	}
	for _, fh := range r.MultipartForm.File["file"] {
		atts = append(atts, models.Attachment{Name: fh.Filename, Size: fh.Size})
	}
	return atts, nil
}

// Built-in entries are not in the collection, so only custom files can be removed.
func (a *API) deleteLegislation(w http.ResponseWriter, r *http.Request) {
	if !a.library.Files.Remove(r.Context(), chi.URLParam(r, "id")) {
		a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) listPDFs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.pdfs.List(r.Context()))
}

func (a *API) uploadPDF(w http.ResponseWriter, r *http.Request) {
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

	rec, err := a.pdfs.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (a *API) deletePDF(w http.ResponseWriter, r *http.Request) {
	if !a.pdfs.Delete(r.Context(), chi.URLParam(r, "id")) {
		a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
