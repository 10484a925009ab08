// Package validate checks caller input before anything is sent to the identity provider.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
)

var (
	once     sync.Once
	validate *validator.Validate

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	codePattern     = regexp.MustCompile(`^\d{6}$`)
)

func lazyinit() {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
			return codePattern.MatchString(fl.Field().String())
		})
	})
}

// Struct validates obj against its `validate` tags. Failures are reported as ErrValidation
// listing the offending fields.
func Struct(obj any) error {
	lazyinit()
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !apperrors.As(err, &fieldErrs) {
		return apperrors.Mark(apperrors.ErrValidation, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(problems, ", "))
}

// Form rules used by the terminal front end. The library operations only insist on
// non-empty input; these mirror the stricter rules of the web forms.

type LoginForm struct {
	Username string `validate:"required,min=3"`
	Password string `validate:"required,min=6"`
}

type SignUpForm struct {
	Username string `validate:"required,min=3,max=20,username"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type CodeForm struct {
	Code string `validate:"required,otpcode"`
}

type EmailForm struct {
	Email string `validate:"required,email"`
}

type PasswordForm struct {
	Password string `validate:"required,min=6"`
}

type CredentialsForm struct {
	Username string `validate:"required,min=3,max=20,username"`
	Password string `validate:"omitempty,min=6"`
}
