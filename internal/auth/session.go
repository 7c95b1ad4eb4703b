package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"terradjunto/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	// RememberDuration is how long a "remember me" login lasts.
	RememberDuration = 6 * 30 * 24 * time.Hour // 6 months

	sessionName = "terradjunto"

	keyUser     = "sessionUser"
	keyRemember = "rememberMe"
	keyLang     = "appLang"
	keyVisitor  = "visitor"
)

// Sessions wraps the signed cookie holding sessionUser, rememberMe, appLang
// and the anonymous visitor id.
type Sessions struct {
	store *sessions.CookieStore
}

func NewSessions(secret []byte, secure bool) *Sessions {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: cs}
}

// get never fails: a cookie that does not verify starts a fresh session.
func (s *Sessions) get(r *http.Request) *sessions.Session {
	sess, _ := s.store.Get(r, sessionName)
	return sess
}

// User returns the logged-in user, if any.
func (s *Sessions) User(r *http.Request) (models.AuthUser, bool) {
	raw, ok := s.get(r).Values[keyUser].(string)
	if !ok || raw == "" {
		return models.AuthUser{}, false
	}
	var u models.AuthUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return models.AuthUser{}, false
	}
	return u, true
}

// Login stores user in the cookie. With remember the cookie outlives the
// browser session.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user models.AuthUser, remember bool) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	sess := s.get(r)
	sess.Values[keyUser] = string(raw)
	sess.Values[keyRemember] = remember
	return s.save(w, r, sess)
}

// save keeps a remembered login alive across later writes to the cookie.
func (s *Sessions) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	opts := *s.store.Options
	if remember, _ := sess.Values[keyRemember].(bool); remember {
		opts.MaxAge = int(RememberDuration.Seconds())
	}
	sess.Options = &opts
	return sess.Save(r, w)
}

// Logout drops the user but keeps the language and visitor id.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	delete(sess.Values, keyUser)
	delete(sess.Values, keyRemember)
	return s.save(w, r, sess)
}

// Remembered reports the rememberMe flag of the current login.
func (s *Sessions) Remembered(r *http.Request) bool {
	v, _ := s.get(r).Values[keyRemember].(bool)
	return v
}

func (s *Sessions) Lang(r *http.Request) (string, bool) {
	v, ok := s.get(r).Values[keyLang].(string)
	return v, ok && v != ""
}

func (s *Sessions) SetLang(w http.ResponseWriter, r *http.Request, lang string) error {
	sess := s.get(r)
	sess.Values[keyLang] = lang
	return s.save(w, r, sess)
}

// Visitor returns the anonymous visitor id, issuing one on first use.
func (s *Sessions) Visitor(w http.ResponseWriter, r *http.Request) (string, error) {
	sess := s.get(r)
	if v, ok := sess.Values[keyVisitor].(string); ok && v != "" {
		return v, nil
	}
	id := uuid.NewString()
	sess.Values[keyVisitor] = id
	return id, s.save(w, r, sess)
}
