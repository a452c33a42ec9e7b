package middleware

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
)

var initValidatorOnce sync.Once

// InitValidator registers the domain validation tags on gin's binding
// engine. Idempotent; Setup calls it before any route binds a request.
func InitValidator() {
	initValidatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerDomainTags(engine)
	})
}

func registerDomainTags(v *validator.Validate) {
	tags := map[string]validator.Func{
		"shipment_status": isShipmentStatus,
		"incoterm":        isIncoterm,
		"warehouse_code":  isWarehouseCode,
		"order_ref":       isOrderRef,
		"week_number":     isWeekNumber,
		"safe_string":     isSafeString,
	}
	for tag, fn := range tags {
		_ = v.RegisterValidation(tag, fn)
	}

	// Report field names as they appear on the wire, not as Go identifiers.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
}

var (
	warehouseCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,19}$`)
	orderRefPattern      = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/\-]{2,31}$`)
	safeStringPattern    = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?@#$%&*()+=:;'"<>\/\[\]{}|\\~\x60]+$`)
)

var shipmentStatuses = map[string]struct{}{
	"planned":    {},
	"in_transit": {},
	"arrived":    {},
	"stored":     {},
	"delayed":    {},
	"cancelled":  {},
}

// Incoterms 2020 three-letter rules.
var incoterms = map[string]struct{}{
	"EXW": {}, "FCA": {}, "FAS": {}, "FOB": {},
	"CFR": {}, "CIF": {}, "CPT": {}, "CIP": {},
	"DAP": {}, "DPU": {}, "DDP": {},
}

func isShipmentStatus(fl validator.FieldLevel) bool {
	_, ok := shipmentStatuses[fl.Field().String()]
	return ok
}

func isIncoterm(fl validator.FieldLevel) bool {
	_, ok := incoterms[strings.ToUpper(fl.Field().String())]
	return ok
}

func isWarehouseCode(fl validator.FieldLevel) bool {
	return warehouseCodePattern.MatchString(fl.Field().String())
}

func isOrderRef(fl validator.FieldLevel) bool {
	return orderRefPattern.MatchString(fl.Field().String())
}

func isWeekNumber(fl validator.FieldLevel) bool {
	week := fl.Field().Int()
	return week >= 1 && week <= 53
}

func isSafeString(fl validator.FieldLevel) bool {
	return safeStringPattern.MatchString(fl.Field().String())
}

// SanitizeString strips NUL bytes and surrounding whitespace.
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer cleans query string values before handlers read them.
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for _, values := range query {
			for i := range values {
				values[i] = SanitizeString(values[i])
			}
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType rejects mutating requests whose body is not JSON. Requests
// without a body pass through so empty-bodied action endpoints keep working.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength > 0 && !strings.HasPrefix(c.ContentType(), "application/json") {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: http.StatusUnsupportedMediaType,
				})
				return
			}
		}
		c.Next()
	}
}
