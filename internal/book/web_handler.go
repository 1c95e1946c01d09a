package book

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"bookshelf/internal/httpx"

	"go.uber.org/zap"
)

// Template names understood by the Renderer.
const (
	PageHome  = "home"
	PageIndex = "books/index"
	PageNew   = "books/new"
	PageShow  = "books/show"
	PageEdit  = "books/edit"
)

// Renderer writes a named page with the given data.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data any) error
}

// Flash carries the success and error banners passed through redirects.
type Flash struct {
	Success string
	Error   string
}

func flashFrom(r *http.Request) Flash {
	q := r.URL.Query()
	return Flash{Success: q.Get("success"), Error: q.Get("error")}
}

// IndexPage is the data of the book list.
type IndexPage struct {
	Flash
	Books []Book
}

// ShowPage is the data of a single book.
type ShowPage struct {
	Flash
	Book Book
}

// FormPage is the data of the new and edit forms. Book is the stored row on
// the edit form and the zero value on the new form.
type FormPage struct {
	Flash
	Book Book
	Form Form
}

// WebHandler serves the server-rendered pages.
type WebHandler struct {
	service  *Service
	renderer Renderer
	logger   *zap.Logger
}

func NewWebHandler(service *Service, renderer Renderer, logger *zap.Logger) *WebHandler {
	return &WebHandler{service: service, renderer: renderer, logger: logger}
}

// Home handles GET /
func (h *WebHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, PageHome, flashFrom(r))
}

// List handles GET /books
func (h *WebHandler) List(w http.ResponseWriter, r *http.Request) {
	page := IndexPage{Flash: flashFrom(r)}

	books, err := h.service.List(r.Context())
	if err != nil {
		h.logError(r, "list books", err)
		page.Error = "Error retrieving books"
		books = []Book{}
	}
	page.Books = books
	h.render(w, r, PageIndex, page)
}

// New handles GET /books/new
func (h *WebHandler) New(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, PageNew, FormPage{Flash: flashFrom(r)})
}

// Show handles GET /books/{id}
func (h *WebHandler) Show(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, r, PageShow, ShowPage{Flash: flashFrom(r), Book: b})
}

// Edit handles GET /books/{id}/edit
func (h *WebHandler) Edit(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, r, PageEdit, FormPage{Flash: flashFrom(r), Book: b, Form: FormFrom(b)})
}

// Create handles POST /books
func (h *WebHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(r)
	if err != nil {
		h.render(w, r, PageNew, FormPage{Flash: Flash{Error: "Error creating book"}, Form: form})
		return
	}

	var b Book
	in, err := form.Input()
	if err == nil {
		b, err = h.service.Create(r.Context(), in, WebRules)
	}

	var ve *ValidationError
	switch {
	case err == nil:
		redirect(w, r, "/books", "success", fmt.Sprintf(`Book "%s" created successfully`, b.Title))
	case errors.As(err, &ve):
		h.render(w, r, PageNew, FormPage{Flash: Flash{Error: ve.Message}, Form: form})
	default:
		h.logError(r, "create book", err)
		h.render(w, r, PageNew, FormPage{Flash: Flash{Error: "Error creating book"}, Form: form})
	}
}

// Update handles PUT /books/{id}
func (h *WebHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, "/books", "error", "Book not found")
		return
	}
	self := fmt.Sprintf("/books/%d", id)

	form, err := parseForm(r)
	if err != nil {
		redirect(w, r, self, "error", "Error updating book")
		return
	}

	var (
		b  Book
		ve *ValidationError
	)
	in, err := form.Input()
	if err == nil {
		b, err = h.service.Update(r.Context(), id, in, WebRules)
	} else {
		// The year did not parse; existence still takes precedence.
		var getErr error
		if b, getErr = h.service.Get(r.Context(), id); getErr != nil {
			err = getErr
		}
	}

	switch {
	case err == nil:
		redirect(w, r, self, "success", "Book updated successfully")
	case errors.Is(err, ErrNotFound):
		redirect(w, r, "/books", "error", "Book not found")
	case errors.As(err, &ve):
		h.render(w, r, PageEdit, FormPage{Flash: Flash{Error: ve.Message}, Book: b, Form: form})
	default:
		h.logError(r, "update book", err)
		redirect(w, r, self, "error", "Error updating book")
	}
}

// Delete handles DELETE /books/{id}
func (h *WebHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, "/books", "error", "Book not found")
		return
	}

	_, err := h.service.Delete(r.Context(), id)
	switch {
	case err == nil:
		redirect(w, r, "/books", "success", "Book deleted successfully")
	case errors.Is(err, ErrNotFound):
		redirect(w, r, "/books", "error", "Book not found")
	default:
		h.logError(r, "delete book", err)
		redirect(w, r, "/books", "error", "Error deleting book")
	}
}

// lookup loads the {id} book or redirects to the list with an error banner.
func (h *WebHandler) lookup(w http.ResponseWriter, r *http.Request) (Book, bool) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, "/books", "error", "Book not found")
		return Book{}, false
	}

	b, err := h.service.Get(r.Context(), id)
	switch {
	case err == nil:
		return b, true
	case errors.Is(err, ErrNotFound):
		redirect(w, r, "/books", "error", "Book not found")
	default:
		h.logError(r, "get book", err)
		redirect(w, r, "/books", "error", "Error retrieving book")
	}
	return Book{}, false
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := h.renderer.Render(w, http.StatusOK, name, data); err != nil {
		h.logError(r, "render "+name, err)
	}
}

func (h *WebHandler) logError(r *http.Request, op string, err error) {
	h.logger.Error(op,
		zap.Error(err),
		zap.String("request_id", httpx.RequestIDFrom(r)),
	)
}

func parseForm(r *http.Request) (Form, error) {
	if err := r.ParseForm(); err != nil {
		return Form{}, fmt.Errorf("parse form: %w", err)
	}
	return formFromValues(r.PostForm), nil
}

func redirect(w http.ResponseWriter, r *http.Request, path, key, message string) {
	http.Redirect(w, r, path+"?"+url.Values{key: {message}}.Encode(), http.StatusFound)
}
