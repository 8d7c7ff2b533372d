package security

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"

	TokenExpiration = time.Hour * 24
)

// OperatorClaims 运营后台 Token 携带的身份与工作区
type OperatorClaims struct {
	UserID      uint64   `json:"user_id"`
	WorkspaceID uint64   `json:"workspace_id"`
	Roles       []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *OperatorClaims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}
