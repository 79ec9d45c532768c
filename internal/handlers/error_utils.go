package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"telugulearn/internal/middleware"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// HandleAppError writes the standard error envelope for err
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}

// respond writes the success envelope
func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// bindJSON binds the request body into req. Validator failures are reported
// field by field as VALIDATION_FAILED, malformed bodies as INVALID_INPUT.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleAppError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
		return contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeValidationFailed,
			contextutils.SeverityWarn,
			"Validation failed",
			strings.Join(problems, "; "),
			err,
		)
	}
	return contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		"Invalid request body",
		"",
		err,
	)
}

func describeFieldError(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "password":
		return field + " does not meet the password policy"
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// fieldName converts the Go struct field to the snake_case JSON name
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// currentUserID returns the authenticated user id or writes a 401
func currentUserID(c *gin.Context) (int, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrUnauthorized, "authentication required"))
		return 0, false
	}
	return userID, true
}

// parseIDParam reads a positive integer path parameter or writes a 400
func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid "+name,
			fmt.Sprintf("%q is not a valid id", c.Param(name)),
		))
		return 0, false
	}
	return id, true
}

// parseIntQuery reads an optional integer query parameter. Missing values
// yield def; malformed ones write a 400.
func parseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid "+name,
			fmt.Sprintf("%q is not an integer", raw),
		))
		return 0, false
	}
	return v, true
}

func respondOK(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data)
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, message, data)
}
