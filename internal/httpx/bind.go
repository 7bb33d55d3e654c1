package httpx

import (
	"errors"
	"net/http"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// InvalidInput is returned for bodies that are not well-formed JSON of
// the expected shape.
const InvalidInput = "Invalid input format"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's
// validator. It is safe to call more than once.
//
//	username: letters, digits, underscores and hyphens only
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})
}

// Messages maps a failed binding rule to a user-facing message. Keys
// are tried in order "Field.tag", "Field", ".tag"; a failed "required"
// rule is reported before any other.
type Messages map[string]string

// For returns the message for a binding error.
func (m Messages) For(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return InvalidInput
	}

	fe := verrs[0]
	for _, e := range verrs {
		if e.Tag() == "required" {
			fe = e
			break
		}
	}
	for _, key := range []string{fe.Field() + "." + fe.Tag(), fe.Field(), "." + fe.Tag()} {
		if msg, ok := m[key]; ok {
			return msg
		}
	}
	return InvalidInput
}

// BindJSON decodes and validates the body into dst. On failure it
// writes 400 {"error": msg} and returns false.
func BindJSON(c *gin.Context, dst any, msgs Messages) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Error(c, http.StatusBadRequest, msgs.For(err))
		return false
	}
	return true
}
