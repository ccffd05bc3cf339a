package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/logger"
)

// retryAfterSeconds is advertised on retryable failures.
const retryAfterSeconds = 1

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   apperror.Code `json:"error"`
	Message string        `json:"message"`
	Details any           `json:"details,omitempty"`
}

// respondError writes err using its apperror code.  Untyped errors become
// 500s with a generic message and are logged; their text is never sent.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	typed := apperror.As(err)
	if typed == nil {
		typed = apperror.Wrap(apperror.CodeInternal, err, "")
	}
	meta := apperror.MetadataFor(typed.Code())
	status := meta.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: typed.Code(), Message: meta.PublicMessage}
	if status < http.StatusInternalServerError && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}
	if meta.Retryable {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Error(c.Request().Context(), "request failed", err)
	}
	return c.JSON(status, body)
}

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// normalizer is implemented by request DTOs that clean their input
// before validation.
type normalizer interface {
	normalize()
}

// bindAndValidate decodes the request into dst, normalizes it and runs the
// struct tags.  Failures come back as VALIDATION_ERROR with per-field
// details.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.Wrap(apperror.CodeValidation, err, "invalid request body")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = describeRule(fe)
			}
			return apperror.New(apperror.CodeValidation, "request validation failed").
				WithDetails(map[string]any{"fields": fields})
		}
		return apperror.Wrap(apperror.CodeValidation, err, "request validation failed")
	}
	return nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.New(apperror.CodeValidation, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
