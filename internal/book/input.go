package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Form holds the raw string values of the create and edit forms so that a
// rejected submission can be shown back exactly as typed.
type Form struct {
	Title         string
	Author        string
	ISBN          string
	PublishedYear string
	Genre         string
	Description   string
}

// FormFrom fills a form with the current values of b.
func FormFrom(b Book) Form {
	f := Form{
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        Deref(b.ISBN),
		Genre:       Deref(b.Genre),
		Description: Deref(b.Description),
	}
	if b.PublishedYear != nil {
		f.PublishedYear = strconv.Itoa(*b.PublishedYear)
	}
	return f
}

func formFromValues(v url.Values) Form {
	year := v.Get(FieldPublishedYear)
	if year == "" {
		year = v.Get("publication_year")
	}
	return Form{
		Title:         v.Get(FieldTitle),
		Author:        v.Get(FieldAuthor),
		ISBN:          v.Get(FieldISBN),
		PublishedYear: year,
		Genre:         v.Get(FieldGenre),
		Description:   v.Get(FieldDescription),
	}
}

// Input converts the form into store input. Empty optional fields become
// NULL. A year that is not a whole number is reported as a validation error.
func (f Form) Input() (Input, error) {
	in := Input{
		Title:       f.Title,
		Author:      f.Author,
		ISBN:        optional(f.ISBN),
		Genre:       optional(f.Genre),
		Description: optional(f.Description),
	}
	if y := strings.TrimSpace(f.PublishedYear); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return in, invalidYear()
		}
		in.PublishedYear = &year
	}
	return in, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func invalidYear() *ValidationError {
	return &ValidationError{
		Message: "Published year must be a whole number",
		Fields:  []FieldError{{Field: FieldPublishedYear, Message: FieldPublishedYear + " must be a whole number"}},
	}
}

// yearValue accepts a JSON number, a numeric string, an empty string or null.
type yearValue struct {
	set   bool
	value *int
}

func (y *yearValue) UnmarshalJSON(data []byte) error {
	y.set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return invalidYear()
		}
		y.value = &n
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return invalidYear()
	}
	y.value = &n
	return nil
}

type apiRequest struct {
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            *string   `json:"isbn"`
	PublishedYear   yearValue `json:"published_year"`
	PublicationYear yearValue `json:"publication_year"`
	Genre           *string   `json:"genre"`
	Description     *string   `json:"description"`
}

func (req apiRequest) input() Input {
	year := req.PublishedYear.value
	if !req.PublishedYear.set {
		year = req.PublicationYear.value
	}
	return Input{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          optional(Deref(req.ISBN)),
		PublishedYear: year,
		Genre:         optional(Deref(req.Genre)),
		Description:   optional(Deref(req.Description)),
	}
}

const maxMultipartMemory = 1 << 20

// errBadBody marks a request body that could not be decoded at all.
type errBadBody struct{ err error }

func (e errBadBody) Error() string { return fmt.Sprintf("decode request body: %v", e.err) }
func (e errBadBody) Unwrap() error { return e.err }

// decodeInput reads a book from a JSON or form encoded body.
func decodeInput(r *http.Request) (Input, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return Input{}, errBadBody{err}
		}
		return formFromValues(r.PostForm).Input()
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return Input{}, errBadBody{err}
		}
		return formFromValues(r.PostForm).Input()
	}

	var req apiRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	var ve *ValidationError
	switch {
	case errors.Is(err, io.EOF):
		// An empty body is treated as an empty book and fails validation.
	case errors.As(err, &ve):
		return Input{}, ve
	case err != nil:
		return Input{}, errBadBody{err}
	}
	return req.input(), nil
}
