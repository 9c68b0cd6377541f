package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

var registerOnce sync.Once

// registerValidators adds the "jobsource" and "daterange" tags to gin's
// validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("jobsource", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseSource(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("daterange", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseDateRange(fl.Field().String())
			return err == nil
		})
	})
}

// bindingMessage turns a binding error into a client-facing message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body: " + err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("invalid %s: is required", field))
		case "jobsource":
			msgs = append(msgs, fmt.Sprintf("invalid %s: unknown source %q", field, fe.Value()))
		case "daterange":
			msgs = append(msgs, fmt.Sprintf("invalid %s: unknown date range %q", field, fe.Value()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("invalid %s: must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s: failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	// Slice fields are reported as "Sources[1]".
	if i := strings.IndexByte(s, '['); i > 0 {
		s = s[:i]
	}
	return strings.ToLower(s[:1]) + s[1:]
}
