package models

// Identity is the request-scoped principal derived from a validated access token.
// It is never persisted.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// HasAnyRole checks if the identity holds any of the given roles
func (i *Identity) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}
