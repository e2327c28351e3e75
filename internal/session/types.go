package session

import (
	"errors"
	"strings"
	"time"

	"github.com/fionalabs/outreach-orchestrator/internal/research"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Session carries context continuity for one user across outreach runs.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Metadata  map[string]interface{} `json:"metadata"`
	Context   map[string]interface{} `json:"context"`
	History   []Message              `json:"history"`
}

// Message is one turn in the session history.
type Message struct {
	Role      string    `json:"role"` // "user", "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// IsExpired checks whether the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AddMessage appends a turn to the history.
func (s *Session) AddMessage(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: time.Now()})
	s.UpdatedAt = time.Now()
}

// LeadMemory is one remembered research result, recallable across sessions.
type LeadMemory struct {
	LeadName     string          `json:"lead_name"`
	LeadEmail    string          `json:"lead_email"`
	Research     research.Record `json:"research"`
	EmailSubject string          `json:"email_subject,omitempty"`
	Delivered    bool            `json:"delivered"`
	SavedAt      time.Time       `json:"saved_at"`
}

// Matches reports whether the memory is relevant to a keyword query. Every
// whitespace-separated term must appear somewhere in the memory text.
func (m *LeadMemory) Matches(query string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		m.LeadName,
		m.Research.Name,
		m.Research.CurrentRole,
		m.Research.Company,
		m.Research.IndustryFocus,
		m.Research.NotableConnections,
		strings.Join(m.Research.ProfessionalBackground, " "),
		strings.Join(m.Research.RecentAchievements, " "),
	}, " "))

	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
