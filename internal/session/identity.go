package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rentnest/nestchat/internal/types"
)

const (
	RoleGuest    = "guest"
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
	RoleAdmin    = "admin"
)

// Identity is the user a session acts as.
type Identity struct {
	UserID    types.ID
	Name      string
	Role      string
	ExpiresAt *time.Time
	Anonymous bool
}

// Guest is the identity used when no valid token is available.
func Guest() Identity {
	return Identity{Name: "Guest", Role: RoleGuest, Anonymous: true}
}

// Expired reports whether the token expiry has passed.
func (i Identity) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// DecodeIdentity reads identity claims from a JWT without verifying the
// signature; the server verifies on every call. Malformed tokens decode to Guest.
func DecodeIdentity(token string) Identity {
	claims, err := parseClaims(token)
	if err != nil {
		return Guest()
	}

	id := Identity{Role: RoleTenant}
	for _, key := range []string{"user_id", "userId", "id", "sub"} {
		if v := claimString(claims, key); v != "" {
			id.UserID = types.ID(v)
			break
		}
	}
	if id.UserID == "" {
		return Guest()
	}
	for _, key := range []string{"name", "username", "user_name"} {
		if v := claimString(claims, key); v != "" {
			id.Name = v
			break
		}
	}
	if id.Name == "" {
		id.Name = "User " + string(id.UserID)
	}
	if role := claimString(claims, "role"); role != "" {
		id.Role = strings.ToLower(role)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		at := exp.Time
		id.ExpiresAt = &at
	}
	return id
}

func parseClaims(token string) (jwt.MapClaims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser(jwt.WithJSONNumber()).ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}
