package services

import (
	"strings"

	"github.com/upb/beinus-auth/models"
)

// orgRoles lists the organization codes that grant a dedicated role
var orgRoles = map[string]models.Role{
	"org1": models.RoleOrg1,
	"org2": models.RoleOrg2,
	"org3": models.RoleOrg3,
	"org4": models.RoleOrg4,
	"org5": models.RoleOrg5,
	"org6": models.RoleOrg6,
	"org7": models.RoleOrg7,
}

// ResolveRole maps an organization code to a role.
// Codes are matched case-insensitively; anything unrecognized, including "", yields USER.
func ResolveRole(orgCode string) models.Role {
	if role, ok := orgRoles[strings.ToLower(strings.TrimSpace(orgCode))]; ok {
		return role
	}
	return models.RoleUser
}
