package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"terradjunto/internal/assistant"
	"terradjunto/internal/auth"
	"terradjunto/internal/i18n"
	"terradjunto/internal/legislation"
	"terradjunto/internal/logger"
	"terradjunto/internal/models"
	"terradjunto/internal/records"
	"terradjunto/internal/storage"
	"terradjunto/internal/store"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const userContextKey contextKey = "user"

// Config carries what the API needs beyond the slot store.
type Config struct {
	Sessions       *auth.Sessions
	Archive        storage.Archiver // nil keeps uploads as metadata only
	MaxUploadBytes int64
}

type API struct {
	incidents     *records.Incidents
	waste         *records.Waste
	participation *records.Participation
	datasets      *records.Datasets
	library       *legislation.Library
	pdfs          *legislation.PDFs
	accounts      *auth.Accounts
	assistant     *assistant.Service

	sessions  *auth.Sessions
	archive   storage.Archiver
	maxUpload int64

	unsubscribe []func()
}

func New(kv store.KV, cfg Config) (*API, error) {
	files := records.NewLegislationFiles(kv)
	library, err := legislation.NewLibrary(files)
	if err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}

	a := &API{
		incidents:     records.NewIncidents(kv),
		waste:         records.NewWaste(kv),
		participation: records.NewParticipation(kv),
		datasets:      records.NewDatasets(kv),
		library:       library,
		pdfs:          legislation.NewPDFs(records.NewLegislationPDFs(kv), cfg.Archive),
		accounts:      auth.NewAccounts(kv),
		assistant:     assistant.New(kv),
		sessions:      cfg.Sessions,
		archive:       cfg.Archive,
		maxUpload:     cfg.MaxUploadBytes,
	}

	a.unsubscribe = append(a.unsubscribe,
		logChanges(a.incidents.Collection),
		logChanges(a.waste.Collection),
		logChanges(a.participation.Collection),
		logChanges(a.datasets.Collection),
		logChanges(files.Collection),
		logChanges(a.pdfs.Collection),
	)
	return a, nil
}

// Accounts is exposed so startup can seed the admin.
func (a *API) Accounts() *auth.Accounts {
	return a.accounts
}

// Close detaches the change subscribers.
func (a *API) Close() {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
}

func logChanges[T records.Record](c *records.Collection[T]) func() {
	return c.Subscribe(func(ev records.Event[T]) {
		logger.L().Info("record changed", "collection", ev.Collection, "kind", ev.Kind, "id", ev.ID)
	})
}

// getUserFromContext extracts the authenticated user from the request context
func getUserFromContext(r *http.Request) *models.AuthUser {
	user, ok := r.Context().Value(userContextKey).(*models.AuthUser)
	if !ok {
		return nil
	}
	return user
}

// currentUser reads the session without requiring one.
func (a *API) currentUser(r *http.Request) (models.AuthUser, bool) {
	u, ok := a.sessions.User(r)
	if !ok {
		return u, false
	}
	// Roles may have changed since login.
	stored, ok := a.accounts.Users().Get(r.Context(), u.Email)
	if !ok {
		return models.AuthUser{}, false
	}
	return stored.Public(), true
}

// AuthMiddleware requires a logged-in session user
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.currentUser(r)
		if !ok {
			a.fail(w, r, http.StatusUnauthorized, i18n.AuthRequired)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware requires the user to be an admin
func (a *API) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r)
		if user == nil || !user.IsAdmin() {
			a.fail(w, r, http.StatusForbidden, i18n.AuthAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	// Public auth endpoints
	r.Post("/auth/register", a.register)
	r.Post("/auth/login", a.login)
	r.Post("/auth/logout", a.logout)
	r.Post("/auth/reset-password", a.resetPassword)
	r.Get("/auth/check", a.checkAuth)

	// Language
	r.Get("/messages", a.messages)
	r.Get("/messages/geolocation/{code}", a.geolocationMessage)
	r.Put("/prefs/lang", a.setLang)

	// Virtual assistant
	r.Route("/assistant/messages", func(r chi.Router) {
		r.Get("/", a.assistantMessages)
		r.Post("/", a.assistantSend)
		r.Delete("/", a.assistantClear)
	})

	// Citizen submissions
	r.Post("/incidents", a.createIncident)
	r.Post("/waste", a.createWaste)
	r.Post("/participation", a.createParticipation)
	r.Get("/participation/published", a.publishedParticipation)

	// Legislation and maps
	r.Get("/legislation", a.listLegislation)
	r.Get("/legislation/tags", a.legislationTags)
	r.Get("/legislation/pdfs", a.listPDFs)
	r.Get("/map/layers", a.mapLayers)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(a.AuthMiddleware)

		r.Get("/auth/me", a.getMe)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(a.AdminMiddleware)

			r.Route("/incidents", func(r chi.Router) {
				r.Get("/", listRecords(a.incidents.Search))
				r.Get("/export.csv", exportRecords("ocorrencias", records.IncidentColumns, a.incidents.Search))
				r.Put("/{id}/status", a.setStatus(func(ctx context.Context, id, st string) (any, bool, error) {
					return a.incidents.SetStatus(ctx, id, models.IncidentStatus(st))
				}))
			})

			r.Route("/waste", func(r chi.Router) {
				r.Get("/", listRecords(a.waste.Search))
				r.Get("/export.csv", exportRecords("residuos", records.WasteColumns, a.waste.Search))
				r.Put("/{id}/status", a.setStatus(func(ctx context.Context, id, st string) (any, bool, error) {
					return a.waste.SetStatus(ctx, id, models.WasteStatus(st))
				}))
			})

			r.Route("/participation", func(r chi.Router) {
				r.Get("/", listRecords(a.participation.Search))
				r.Get("/export.csv", exportRecords("participacao", records.ParticipationColumns, a.participation.Search))
				r.Put("/{id}/status", a.setStatus(func(ctx context.Context, id, st string) (any, bool, error) {
					return a.participation.SetStatus(ctx, id, models.ParticipationStatus(st))
				}))
			})

			r.Route("/datasets", func(r chi.Router) {
				r.Get("/", a.listDatasets)
				r.Post("/", a.uploadDataset)
				r.Get("/{id}/bounds", a.datasetBounds)
				r.Put("/{id}/toggle", a.toggleDataset)
				r.Put("/{id}/scope", a.setDatasetScope)
				r.Delete("/{id}", a.deleteDataset)
			})

			r.Route("/legislation", func(r chi.Router) {
				r.Post("/", a.createLegislation)
				r.Delete("/{id}", a.deleteLegislation)
				r.Post("/pdfs", a.uploadPDF)
				r.Delete("/pdfs/{id}", a.deletePDF)
			})

			r.Get("/report", a.report)
			r.Get("/report.csv", a.reportCSV)
			r.Get("/users", a.listUsers)
			r.Get("/assistant/visitors", a.assistantVisitors)
		})
	})

	return r
}

// lang resolves the response language: ?lang, then the session, then
// Accept-Language, then Portuguese.
func (a *API) lang(r *http.Request) i18n.Lang {
	if l, ok := i18n.Parse(r.URL.Query().Get("lang")); ok {
		return l
	}
	if v, ok := a.sessions.Lang(r); ok {
		if l, ok := i18n.Parse(v); ok {
			return l
		}
	}
	l, _ := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"))
	return l
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body capped at the upload limit.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	return json.NewDecoder(r.Body).Decode(dst)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": message, "code": code})
}

// fail responds with the localized message for key.
func (a *API) fail(w http.ResponseWriter, r *http.Request, status int, key string, args ...string) {
	respondError(w, status, key, i18n.T(a.lang(r), key, args...))
}

// field recovers the field name wrapped into a "%w: field" error.
func field(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// failValidation maps service validation errors to 400 responses.
func (a *API) failValidation(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, records.ErrRequired):
		a.fail(w, r, http.StatusBadRequest, i18n.FormRequired, "field", field(err, records.ErrRequired))
	case errors.Is(err, records.ErrInvalidValue):
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidValue, "field", field(err, records.ErrInvalidValue))
	case errors.Is(err, records.ErrInvalidStatus):
		a.fail(w, r, http.StatusBadRequest, i18n.StatusInvalid, "status", field(err, records.ErrInvalidStatus))
	default:
		logger.L().Error("request failed", "path", r.URL.Path, "err", err)
		a.fail(w, r, http.StatusInternalServerError, i18n.ErrProcessing)
	}
}
