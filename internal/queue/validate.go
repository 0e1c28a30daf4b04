package queue

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9/_-]*$`)

// SubmitRequest is the input of Submit.
type SubmitRequest struct {
	Slug     string `validate:"required,slug"`
	Filename string
	Archive  []byte
}

// NormalizeSlug trims surrounding whitespace and trailing slashes.
func NormalizeSlug(slug string) string {
	return strings.TrimRight(strings.TrimSpace(slug), "/")
}

// ValidSlug reports whether slug, already normalized, is acceptable.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return ValidSlug(fl.Field().String())
	})
	return v
}
