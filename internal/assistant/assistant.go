// Package assistant keeps the virtual assistant transcripts, one slot per
// visitor, and answers with canned replies picked by keyword.
package assistant

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"terradjunto/internal/i18n"
	"terradjunto/internal/models"
	"terradjunto/internal/records"
	"terradjunto/internal/store"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrEmptyMessage = errors.New("empty message")

// topics are checked in order; the first matching keyword wins.
var topics = []struct {
	key      string
	keywords []string
}{
	{i18n.AssistantIncidents, []string{"ocorr", "incident", "signal", "buraco", "avaria"}},
	{i18n.AssistantWaste, []string{"lixo", "resíduo", "residuo", "monos", "waste", "déchet", "dechet", "encombr"}},
	{i18n.AssistantParticipation, []string{"particip", "projeto", "project", "projet", "programa", "program", "consulta"}},
	{i18n.AssistantLegislation, []string{"lei", "legisla", "law", "loi", "decreto"}},
	{i18n.AssistantMap, []string{"mapa", "map", "carte", "camada", "layer"}},
	{i18n.AssistantGreeting, []string{"olá", "ola", "bom dia", "hello", "hi", "bonjour", "salut"}},
}

// Reply picks the canned answer for text.
func Reply(lang i18n.Lang, text string) string {
	words := strings.Fields(strings.ToLower(text))
	for _, t := range topics {
		for _, kw := range t.keywords {
			if matches(words, kw) {
				return i18n.T(lang, t.key)
			}
		}
	}
	return i18n.T(lang, i18n.AssistantFallback)
}

// matches treats multi-word keywords as phrases and single words as prefixes.
func matches(words []string, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(strings.Join(words, " "), kw)
	}
	return slices.ContainsFunc(words, func(w string) bool {
		return strings.HasPrefix(strings.Trim(w, "?!.,;:"), kw)
	})
}

// Service stores transcripts under vaMessages:<visitor>. The slot is the only
// copy; nothing is kept in memory per visitor.
type Service struct {
	kv store.KV

	// mu serializes appends, since each call binds a fresh collection.
	mu sync.Mutex
}

func New(kv store.KV) *Service {
	return &Service{kv: kv}
}

func (s *Service) chat(visitor string) *records.Collection[models.ChatMessage] {
	return records.NewCollection[models.ChatMessage](s.kv, store.KeyAssistantPrefix+visitor, "assistant", nil)
}

// Messages returns the transcript oldest first.
func (s *Service) Messages(ctx context.Context, visitor string) []models.ChatMessage {
	msgs := s.chat(visitor).List(ctx)
	slices.Reverse(msgs)
	return msgs
}

// Send appends the visitor's message and the assistant's reply, returning both.
func (s *Service) Send(ctx context.Context, visitor string, lang i18n.Lang, text string) ([]models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.chat(visitor)
	now := time.Now().UTC()
	in := c.Create(ctx, models.ChatMessage{ID: records.NewID(), Role: RoleUser, Text: text, CreatedAt: now})
	out := c.Create(ctx, models.ChatMessage{ID: records.NewID(), Role: RoleAssistant, Text: Reply(lang, text), CreatedAt: now})
	return []models.ChatMessage{in, out}, nil
}

// Clear empties the transcript.
func (s *Service) Clear(ctx context.Context, visitor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, store.KeyAssistantPrefix+visitor)
}

// Visitors lists every visitor with a stored transcript.
func (s *Service) Visitors(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, store.KeyAssistantPrefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, store.KeyAssistantPrefix)
	}
	return keys, nil
}
