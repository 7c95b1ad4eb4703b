package api

import (
	"errors"
	"net/http"

	"terradjunto/internal/assistant"
	"terradjunto/internal/i18n"
	"terradjunto/internal/logger"
)

// visitor identifies the transcript owner; anonymous visitors get a cookie id.
func (a *API) visitor(w http.ResponseWriter, r *http.Request) string {
	id, err := a.sessions.Visitor(w, r)
	if err != nil {
		logger.L().Warn("session save failed", "err", err)
	}
	return id
}

func (a *API) assistantMessages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.assistant.Messages(r.Context(), a.visitor(w, r)))
}

func (a *API) assistantSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, i18n.FormInvalidJSON)
		return
	}

	msgs, err := a.assistant.Send(r.Context(), a.visitor(w, r), a.lang(r), req.Text)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		a.fail(w, r, http.StatusBadRequest, i18n.FormRequired, "field", "text")
		return
	}
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, msgs)
}

func (a *API) assistantClear(w http.ResponseWriter, r *http.Request) {
	if err := a.assistant.Clear(r.Context(), a.visitor(w, r)); err != nil {
		logger.L().Warn("assistant clear failed", "err", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (a *API) assistantVisitors(w http.ResponseWriter, r *http.Request) {
	visitors, err := a.assistant.Visitors(r.Context())
	if err != nil {
		a.failValidation(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, visitors)
}
