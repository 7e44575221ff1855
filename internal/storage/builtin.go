package storage

import "github.com/wolfman30/easygopharm/internal/models"

// builtinUsers is the static staff list used when the backend has no matching
// account. Passwords are plaintext here and never leave this package except
// through BuiltinUser for credential checks.
var builtinUsers = []models.User{
	{ID: "builtin-1", Username: "admin", Password: "admin123", Name: "System Administrator", Role: models.RoleSuperAdmin},
	{ID: "builtin-2", Username: "pharmacist", Password: "pharma123", Name: "Lead Pharmacist", Role: models.RoleAdmin},
	{ID: "builtin-3", Username: "triage", Password: "triage123", Name: "Triage Officer", Role: models.RoleStaff},
}

// BuiltinUsers returns the static staff list with secrets stripped.
func BuiltinUsers() []models.User {
	out := make([]models.User, 0, len(builtinUsers))
	for _, u := range builtinUsers {
		out = append(out, u.Sanitized())
	}
	return out
}

// BuiltinUser returns the built-in account for username, secret included.
func BuiltinUser(username string) (models.User, bool) {
	for _, u := range builtinUsers {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}
