package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/neexa/neexa-backend/internal/common"
)

var jsonNamesOnce sync.Once

// useJSONFieldNames makes validation errors report fields by their JSON key.
func useJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// requiredMessager is implemented by requests that answer missing fields
// with one sentence instead of per-field details.
type requiredMessager interface {
	requiredMessage() string
}

// bind decodes and validates the JSON body into dst. On failure it writes
// the 400 response and returns false.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		abort(c, http.StatusBadRequest, "No data provided")
		return false
	}
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		abort(c, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if rm, ok := dst.(requiredMessager); ok && onlyMissing(verrs) {
		abort(c, http.StatusBadRequest, rm.requiredMessage())
		return false
	}
	h.fail(c, fieldErrors(verrs))
	return false
}

func onlyMissing(verrs validator.ValidationErrors) bool {
	for _, fe := range verrs {
		if fe.Tag() != "required" {
			return false
		}
	}
	return true
}

// fieldErrors turns validator failures into per-field client messages.
func fieldErrors(verrs validator.ValidationErrors) *common.ValidationError {
	v := &common.ValidationError{}
	for _, fe := range verrs {
		v.Add(fe.Field(), fieldMessage(fe))
	}
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Missing data for required field."
	case "max":
		if fe.Field() == "first_name" || fe.Field() == "last_name" {
			return "Length must be between 1 and " + fe.Param() + "."
		}
		return "Longer than maximum length " + fe.Param() + "."
	case "len":
		if fe.Field() == "preferred_currency" {
			return "Currency must be a 3-letter code"
		}
		return "Length must be " + fe.Param() + "."
	case "datetime":
		return "Not a valid date."
	}
	return "Invalid value."
}
