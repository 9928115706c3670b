package models

// Role is the single authority carried by an identity
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	RoleOrg1  Role = "ORG1"
	RoleOrg2  Role = "ORG2"
	RoleOrg3  Role = "ORG3"
	RoleOrg4  Role = "ORG4"
	RoleOrg5  Role = "ORG5"
	RoleOrg6  Role = "ORG6"
	RoleOrg7  Role = "ORG7"
)

// String returns the role name as it appears in token claims
func (r Role) String() string {
	return string(r)
}
