package utils

import (
	"fmt"
	"strconv"

	"events_api/internal/apperr"

	"github.com/gin-gonic/gin"
)

// ParamInt reads an integer path parameter. A non-numeric value is a
// validation error.
func ParamInt(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperr.ErrValidation, name)
	}
	return v, nil
}
