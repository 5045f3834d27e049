// Package request binds and validates incoming gin requests, writing the
// error envelope itself when the input is rejected.
package request

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"library-backend/internal/shared/response"
)

// BindJSON decodes the body into dest and runs its Validate method when it
// has one. It returns false after writing a 400.
func BindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	return validate(c, dest)
}

// BindQuery is BindJSON for query strings.
func BindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return false
	}
	return validate(c, dest)
}

func validate(c *gin.Context, dest interface{}) bool {
	v, ok := dest.(validation.Validatable)
	if !ok {
		return true
	}
	if err := v.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err)
		return false
	}
	return true
}

// ParamUUID parses the named path parameter.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
