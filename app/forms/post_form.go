package forms

import (
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error messages keyed by validator tag
var messages = map[string]string{
	"required": "This field is required.",
}

var validate = validator.New()

// ValidationErrors maps a form field name to its error messages
type ValidationErrors map[string][]string

// Error implements error
func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Add records msg against field
func (e ValidationErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// PostForm is the create-post form
type PostForm struct {
	Title   string `form:"title" validate:"required"`
	Content string `form:"content" validate:"required"`

	bound  bool
	errors ValidationErrors
}

// NewPostForm returns an unbound form
func NewPostForm() *PostForm {
	return &PostForm{}
}

// BindPostForm returns a form bound to submitted values. Values are trimmed.
func BindPostForm(values url.Values) *PostForm {
	return &PostForm{
		Title:   strings.TrimSpace(values.Get("title")),
		Content: strings.TrimSpace(values.Get("content")),
		bound:   true,
	}
}

// IsBound reports whether the form carries submitted data
func (f *PostForm) IsBound() bool {
	return f.bound
}

// IsValid validates a bound form. Unbound forms are never valid.
func (f *PostForm) IsValid() bool {
	return f.bound && len(f.Errors()) == 0
}

// Errors returns the per-field errors of a bound form, validating on first use
func (f *PostForm) Errors() ValidationErrors {
	if !f.bound {
		return ValidationErrors{}
	}
	if f.errors == nil {
		f.errors = f.validate()
	}
	return f.errors
}

// FieldErrors returns the errors for a single field
func (f *PostForm) FieldErrors(field string) []string {
	return f.Errors()[field]
}

func (f *PostForm) validate() ValidationErrors {
	errs := ValidationErrors{}
	err := validate.Struct(f)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("__all__", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "Enter a valid value."
		}
		errs.Add(fieldName(fe.StructField()), msg)
	}
	return errs
}

func fieldName(structField string) string {
	switch structField {
	case "Title":
		return "title"
	case "Content":
		return "content"
	}
	return strings.ToLower(structField)
}
