package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rentnest/nestchat/internal/types"
)

// ErrNotLoggedIn is returned when no session is stored.
var ErrNotLoggedIn = errors.New("not logged in: run 'nestchat login'")

// Session is the persisted login. It is populated at login, read by every
// authenticated call, and cleared at logout.
type Session struct {
	Token    string   `json:"token"`
	UserID   types.ID `json:"user_id"`
	UserName string   `json:"user_name,omitempty"`
	Role     string   `json:"role,omitempty"`
	SavedAt  int64    `json:"saved_at,omitempty"`
}

// Identity resolves who the session belongs to. Explicit fields win over
// token claims; an unreadable token yields the guest identity.
func (s *Session) Identity() Identity {
	if s == nil {
		return Guest()
	}
	id := DecodeIdentity(s.Token)
	if s.UserID != "" {
		if id.Anonymous {
			id = Identity{Name: "User " + string(s.UserID), Role: RoleTenant}
		}
		id.UserID = s.UserID
	}
	if s.UserName != "" {
		id.Name = s.UserName
	}
	if s.Role != "" {
		id.Role = s.Role
	}
	return id
}

// Load reads the session at path. A missing file returns ErrNotLoggedIn.
func Load(path string) (*Session, error) {
	var s Session
	ok, err := readJSON(path, &s)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || s.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return &s, nil
}

// Save writes the session to path.
func Save(path string, s Session) error {
	if s.Token == "" {
		return fmt.Errorf("session token cannot be empty")
	}
	if s.SavedAt == 0 {
		s.SavedAt = time.Now().Unix()
	}
	return writeJSONAtomic(path, s)
}

// Clear removes the session at path. Clearing a missing session is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
