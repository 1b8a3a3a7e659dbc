// Package apperr holds the error taxonomy shared by every resource and its
// translation to HTTP responses.
package apperr

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrPageNotFound = errors.New("page not found")
	ErrValidation   = errors.New("validation failed")
)

const internalMessage = "Internal server error"

// StatusCode maps an error to the HTTP status it is surfaced as.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body. Internal errors are logged and
// replaced by a generic message.
func Respond(c *gin.Context, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
		c.JSON(status, gin.H{"error": internalMessage})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// RespondValidation writes a 422 for a binding failure, listing the failed
// rule per field when the validator reports them.
func RespondValidation(c *gin.Context, err error) {
	body := gin.H{"error": ErrValidation.Error()}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		body["details"] = details
	} else {
		body["details"] = err.Error()
	}

	c.JSON(http.StatusUnprocessableEntity, body)
}

var fieldNamesOnce sync.Once

// UseJSONFieldNames makes gin's validator report fields by their json name,
// so validation details match the request body keys.
func UseJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}
