package auth

import (
	"strings"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/shared"
)

// IdentityFromRecord maps the user object returned at login onto the session
// identity. Missing fields stay empty.
func IdentityFromRecord(rec apiclient.Record) shared.Identity {
	identity := shared.Identity{
		ID:     rec.ID(),
		Email:  rec.String("email"),
		Role:   strings.ToLower(firstOf(rec, "role", "user_type", "type")),
		Avatar: firstOf(rec, "avatar", "avatar_url", "profile_picture"),
	}
	identity.Name = firstOf(rec, "name", "full_name", "username")
	if identity.Name == "" {
		identity.Name = strings.TrimSpace(rec.String("first_name") + " " + rec.String("last_name"))
	}
	if identity.Role == "" && rec.Bool("is_admin") {
		identity.Role = shared.RoleAdmin
	}
	return identity
}

func firstOf(rec apiclient.Record, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(rec.String(key)); v != "" {
			return v
		}
	}
	return ""
}
