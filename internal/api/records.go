package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"terradjunto/internal/i18n"
	"terradjunto/internal/logger"
	"terradjunto/internal/models"
	"terradjunto/internal/records"
	"terradjunto/internal/tabular"

	"github.com/go-chi/chi/v5"
)

var errBadSubmission = errors.New("bad submission")

// decodeSubmission reads a record from a JSON body, or from the "data" field
// of a multipart form. Files under "files" only contribute their name and
// size; the bytes are discarded.
func (a *API) decodeSubmission(w http.ResponseWriter, r *http.Request, dst interface{}) ([]models.Attachment, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := a.decodeJSON(w, r, dst); err != nil {
			return nil, errBadSubmission
		}
		return nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		return nil, errBadSubmission
	}
	defer r.MultipartForm.RemoveAll()

	if err := json.Unmarshal([]byte(r.FormValue("data")), dst); err != nil {
		return nil, errBadSubmission
	}
	files := r.MultipartForm.File["files"]
	atts := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		atts = append(atts, models.Attachment{Name: fh.Filename, Size: fh.Size})
	}
	return atts, nil
}

func (a *API) createIncident(w http.ResponseWriter, r *http.Request) {
	var in models.Incident
	atts, err := a.decodeSubmission(w, r, &in)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}
	in.Attachments = append(in.Attachments, atts...)

	// Signed-in reporters don't retype their details
	if u, ok := a.currentUser(r); ok && !in.Anonymous {
		if in.UserName == "" {
			in.UserName = u.Name
		}
		if in.Email == "" {
			in.Email = u.Email
		}
	}

	rec, err := a.incidents.Submit(r.Context(), in)
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (a *API) createWaste(w http.ResponseWriter, r *http.Request) {
	var in models.WasteRequest
	atts, err := a.decodeSubmission(w, r, &in)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}
	in.Attachments = append(in.Attachments, atts...)

	rec, err := a.waste.Submit(r.Context(), in)
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (a *API) createParticipation(w http.ResponseWriter, r *http.Request) {
	var in models.Participation
	atts, err := a.decodeSubmission(w, r, &in)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}
	in.Attachments = append(in.Attachments, atts...)

	if u, ok := a.currentUser(r); ok {
		if in.UserName == "" {
			in.UserName = u.Name
		}
		if in.Email == "" {
			in.Email = u.Email
		}
	}

	rec, err := a.participation.Submit(r.Context(), in)
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (a *API) publishedParticipation(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.participation.Published(r.Context(), r.URL.Query().Get("itemId")))
}

// Admin record handlers

func queryFrom(r *http.Request) records.Query {
	q := r.URL.Query()
	kind := q.Get("kind")
	if kind == "" {
		kind = q.Get("type")
	}
	return records.Query{
		Text:   q.Get("q"),
		Status: q.Get("status"),
		Kind:   kind,
		ItemID: q.Get("itemId"),
	}
}

func listRecords[T any](search func(context.Context, records.Query) []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, search(r.Context(), queryFrom(r)))
	}
}

// exportRecords downloads the filtered list as CSV.
func exportRecords[T any](prefix string, cols []tabular.Column[T], search func(context.Context, records.Query) []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeCSV(w, tabular.Filename(prefix, time.Now()), cols, search(r.Context(), queryFrom(r)))
	}
}

func writeCSV[T any](w http.ResponseWriter, filename string, cols []tabular.Column[T], rows []T) {
	w.Header().Set("Content-Type", tabular.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := tabular.Write(w, cols, rows); err != nil {
		logger.L().Warn("csv write failed", "file", filename, "err", err)
	}
}

func (a *API) setStatus(set func(ctx context.Context, id, status string) (any, bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if err := a.decodeJSON(w, r, &req); err != nil {
			a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
			return
		}

		rec, ok, err := set(r.Context(), chi.URLParam(r, "id"), req.Status)
		if err != nil {
			a.failValidation(w, r, err)
			return
		}
		if !ok {
			a.fail(w, r, http.StatusNotFound, i18n.RecordNotFound)
			return
		}
		respondJSON(w, http.StatusOK, rec)
	}
}

func (a *API) report(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, records.Report(r.Context(), a.incidents, a.waste, a.participation))
}

func (a *API) reportCSV(w http.ResponseWriter, r *http.Request) {
	rows := records.ReportRows(records.Report(r.Context(), a.incidents, a.waste, a.participation))
	writeCSV(w, tabular.Filename("relatorio", time.Now()), records.ReportColumns, rows)
}
