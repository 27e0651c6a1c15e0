package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Operator is the authenticated admin behind a request.
type Operator struct {
	UserID string
	Roles  []string
}

func (o Operator) HasRole(role string) bool {
	return slices.Contains(o.Roles, role)
}

// CurrentOperator returns the operator set by AuthRequired, if any.
func CurrentOperator(c *gin.Context) (Operator, bool) {
	userID := c.GetString(ContextUserIDKey)
	if userID == "" {
		return Operator{}, false
	}
	roles, _ := c.Get(ContextRolesKey)
	roleList, _ := roles.([]string)
	return Operator{UserID: userID, Roles: roleList}, true
}
