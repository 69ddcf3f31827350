package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	if _, err := Load(path); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}

	if err := Save(path, Session{Token: "abc", UserID: "7", UserName: "Dana"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Token != "abc" || loaded.UserID != "7" || loaded.SavedAt == 0 {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	if err := Clear(path); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("second clear should be a no-op, got %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn after clear, got %v", err)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "s.json"), Session{}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestDecodeIdentity(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tests := []struct {
		name     string
		token    string
		wantID   string
		wantName string
		wantRole string
		guest    bool
	}{
		{
			name:     "string claims",
			token:    signToken(t, jwt.MapClaims{"user_id": "15", "name": "Ana", "role": "Landlord", "exp": exp.Unix()}),
			wantID:   "15",
			wantName: "Ana",
			wantRole: RoleLandlord,
		},
		{
			name:     "numeric sub",
			token:    signToken(t, jwt.MapClaims{"sub": float64(42)}),
			wantID:   "42",
			wantName: "User 42",
			wantRole: RoleTenant,
		},
		{
			name:     "large numeric id keeps precision",
			token:    signToken(t, jwt.MapClaims{"user_id": int64(9007199254740993)}),
			wantID:   "9007199254740993",
			wantName: "User 9007199254740993",
			wantRole: RoleTenant,
		},
		{
			name:     "bearer prefix",
			token:    "Bearer " + signToken(t, jwt.MapClaims{"userId": "9", "username": "lee"}),
			wantID:   "9",
			wantName: "lee",
			wantRole: RoleTenant,
		},
		{name: "malformed", token: "not-a-jwt", guest: true},
		{name: "empty", token: "", guest: true},
		{name: "no subject", token: signToken(t, jwt.MapClaims{"name": "x"}), guest: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := DecodeIdentity(tt.token)
			if tt.guest {
				if !id.Anonymous || id.Role != RoleGuest || id.UserID != "" {
					t.Fatalf("expected guest identity, got %+v", id)
				}
				return
			}
			if id.Anonymous {
				t.Fatalf("unexpected guest identity for %s", tt.name)
			}
			if string(id.UserID) != tt.wantID || id.Name != tt.wantName || id.Role != tt.wantRole {
				t.Fatalf("got %+v", id)
			}
		})
	}
}

func TestIdentityExpiry(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	id := DecodeIdentity(signToken(t, jwt.MapClaims{"sub": "1", "exp": past.Unix()}))
	if !id.Expired(time.Now()) {
		t.Fatal("expected expired identity")
	}
}

func TestSessionIdentityPrefersExplicitFields(t *testing.T) {
	s := &Session{Token: "garbage", UserID: "3", UserName: "Sam", Role: RoleAdmin}
	id := s.Identity()
	if id.Anonymous || id.UserID != "3" || id.Name != "Sam" || id.Role != RoleAdmin {
		t.Fatalf("unexpected identity %+v", id)
	}

	var nilSession *Session
	if !nilSession.Identity().Anonymous {
		t.Fatal("nil session should be anonymous")
	}
}

func TestWatchReportsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := Save(path, Session{Token: "abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 8)
	if err := Watch(ctx, path, func(c Change) { changes <- c }); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("clear: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c == Removed {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for removal")
		}
	}
}
