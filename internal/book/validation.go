package book

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Field names as they appear in forms and JSON bodies.
const (
	FieldTitle         = "title"
	FieldAuthor        = "author"
	FieldISBN          = "isbn"
	FieldPublishedYear = "published_year"
	FieldGenre         = "genre"
	FieldDescription   = "description"
)

// Rules is a named set of presence requirements. The web forms and the JSON
// API share the same mechanism and differ only in which Rules they apply.
type Rules struct {
	Name     string
	Required []string
	Message  string
}

var (
	// WebRules is applied to the HTML create and edit forms.
	WebRules = Rules{
		Name:     "web",
		Required: []string{FieldTitle, FieldAuthor, FieldPublishedYear, FieldGenre},
		Message:  "All required fields must be filled",
	}
	// APIRules is applied to the JSON API.
	APIRules = Rules{
		Name:     "api",
		Required: []string{FieldTitle, FieldAuthor},
		Message:  "Title and author are required",
	}
)

// FieldError describes one failed requirement.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by the service when input fails its Rules.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, strings.Join(names, ", "))
}

// Validate checks in against the rule set and returns a *ValidationError
// listing every missing field, or nil.
func (r Rules) Validate(in Input) error {
	values := in.fieldValues()

	var fields []FieldError
	for _, name := range r.Required {
		err := validate.Var(values[name], "required")
		if err == nil {
			continue
		}
		if _, ok := err.(validator.ValidationErrors); !ok {
			return fmt.Errorf("validate %s: %w", name, err)
		}
		fields = append(fields, FieldError{Field: name, Message: name + " is required"})
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Message: r.Message, Fields: fields}
}

func (in Input) fieldValues() map[string]any {
	year := ""
	if in.PublishedYear != nil {
		year = fmt.Sprint(*in.PublishedYear)
	}
	return map[string]any{
		FieldTitle:         in.Title,
		FieldAuthor:        in.Author,
		FieldISBN:          Deref(in.ISBN),
		FieldPublishedYear: year,
		FieldGenre:         Deref(in.Genre),
		FieldDescription:   Deref(in.Description),
	}
}
