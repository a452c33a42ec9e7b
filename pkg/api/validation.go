package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
)

// BindAndValidate decodes the JSON body into obj and runs the binding
// validators, describing every failed field in the returned error.
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bindingError(err, "invalid request body")
	}
	return nil
}

func bindingError(err error, fallback string) *errors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.ErrBadRequest(fmt.Sprintf("%s: %v", fallback, err))
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return errors.ErrValidationWithFields("validation failed", fields)
}

// fieldName reports the wire name of a failed field. The binding engine
// knows the json tag names; lowercasing the Go name covers structs bound
// before registration.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
		return strings.ToLower(name[:1]) + name[1:]
	}
	return name
}

// Messages for tags that need no parameter interpolation.
var fixedMessages = map[string]string{
	"required":        "is required",
	"email":           "must be a valid email address",
	"url":             "must be a valid URL",
	"uuid":            "must be a valid UUID",
	"alpha":           "must contain only letters",
	"alphanum":        "must contain only letters and numbers",
	"numeric":         "must be a number",
	"shipment_status": "must be one of: planned, in_transit, arrived, stored, delayed, cancelled",
	"incoterm":        "must be a valid Incoterms 2020 code (e.g. FOB, CIF, DDP)",
	"warehouse_code":  "must be a valid warehouse code (uppercase alphanumeric, 3-20 characters)",
	"order_ref":       "must be a valid order reference (uppercase alphanumeric with / or -)",
	"week_number":     "must be an ISO week number between 1 and 53",
	"safe_string":     "contains invalid characters",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "datetime":
		return "must be a valid datetime in format " + fe.Param()
	default:
		return "is invalid"
	}
}
