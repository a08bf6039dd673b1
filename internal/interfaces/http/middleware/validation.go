package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Custom binding tags for CRM request bodies
const (
	TagLeadStatus   = "lead_status"
	TagClientStatus = "client_status"
	TagLast4SSN     = "last4_ssn"
)

// SetupValidator reports fields by their json (or form) name and registers
// the CRM tags. Call once before serving.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation(TagLeadStatus, func(fl validator.FieldLevel) bool {
		return crm.LeadStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation(TagClientStatus, func(fl validator.FieldLevel) bool {
		s := crm.ClientStatus(fl.Field().String())
		return s == crm.ClientStatusActive || s == crm.ClientStatusInactive
	})
	// An empty value clears the stored digits on PATCH
	_ = v.RegisterValidation(TagLast4SSN, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		if len(s) != 4 {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
}

// HandleValidationError writes the error response for a failed bind.
// Oversized bodies are 413, undecodable JSON is ERR_INVALID_JSON and
// everything else is ERR_VALIDATION with per-field details.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)
	if limit, ok := bodyTooLarge(err); ok {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge, bodyTooLargeMessage(limit), requestID))
		return
	}
	if resp, ok := decodeErrorResponse(err, requestID); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// FormatValidationErrors turns validator errors into a validation response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, e := range fieldErrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: fieldMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// decodeErrorResponse recognises JSON decoding failures
func decodeErrorResponse(err error, requestID string) (dto.Response, bool) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body has a field of the wrong type", requestID)
		resp.Error.Details = []dto.ValidationDetail{{
			Field:   typeErr.Field,
			Message: "Must be " + jsonKind(typeErr.Type),
		}}
		return resp, true
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID), true
	}
	return dto.Response{}, false
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "an object"
	}
}

var fieldMessages = map[string]func(validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"email":    func(validator.FieldError) string { return "Invalid email format" },
	"len":      func(e validator.FieldError) string { return "Must be exactly " + e.Param() + " characters" },
	"oneof": func(e validator.FieldError) string {
		return "Must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	},
	"numeric": func(validator.FieldError) string { return "Must be numeric" },
	"min":     func(e validator.FieldError) string { return bound("at least", e) },
	"max":     func(e validator.FieldError) string { return bound("at most", e) },
	TagLeadStatus: func(validator.FieldError) string {
		return "Must be a lead status: new, contacted, qualified, converted or lost"
	},
	TagClientStatus: func(validator.FieldError) string { return "Must be active or inactive" },
	TagLast4SSN:     func(validator.FieldError) string { return "Must be 4 digits" },
}

// fieldMessage returns a human-readable message for one failed rule
func fieldMessage(e validator.FieldError) string {
	if msg, ok := fieldMessages[e.Tag()]; ok {
		return msg(e)
	}
	return "Invalid value"
}

// bound words min/max rules: a length for strings and lists, a value for numbers
func bound(word string, e validator.FieldError) string {
	switch e.Kind() {
	case reflect.String:
		return "Must be " + word + " " + e.Param() + " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return "Must have " + word + " " + e.Param() + " entries"
	}
	return "Must be " + word + " " + e.Param()
}
