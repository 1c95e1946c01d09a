package book

import (
	"errors"
	"net/http"
	"strconv"

	"bookshelf/internal/httpx"

	"go.uber.org/zap"
)

// APIOptions configures the JSON adapter.
type APIOptions struct {
	// Strict applies WebRules instead of APIRules.
	Strict bool
	// ExposeErrors adds the underlying error text to 500 responses.
	ExposeErrors bool
}

// HTTPHandler serves the JSON API under /api/books.
type HTTPHandler struct {
	service      *Service
	rules        Rules
	exposeErrors bool
	logger       *zap.Logger
}

func NewHTTPHandler(service *Service, opts APIOptions, logger *zap.Logger) *HTTPHandler {
	rules := APIRules
	if opts.Strict {
		rules = WebRules
	}
	return &HTTPHandler{
		service:      service,
		rules:        rules,
		exposeErrors: opts.ExposeErrors,
		logger:       logger,
	}
}

// pathID parses the {id} path value. Anything that is not a positive
// integer cannot name a row and is reported as absent.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List handles GET /api/books
// @Summary List books
// @Tags books
// @Produce json
// @Success 200 {object} httpx.Envelope
// @Router /api/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		h.serverError(w, r, "Error retrieving books", err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, books, "Books retrieved successfully")
}

// Get handles GET /api/books/{id}
// @Summary Get a book by id
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /api/books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "Error retrieving book", err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, b, "Book retrieved successfully")
}

// Create handles POST /api/books
// @Summary Create a book
// @Tags books
// @Accept json
// @Produce json
// @Success 201 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Router /api/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.writeError(w, r, "Error creating book", err)
		return
	}

	b, err := h.service.Create(r.Context(), in, h.rules)
	if err != nil {
		h.writeError(w, r, "Error creating book", err)
		return
	}
	httpx.JSONSuccess(w, http.StatusCreated, b, "Book created successfully")
}

// Update handles PUT /api/books/{id}
// @Summary Replace a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.Envelope
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /api/books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	in, err := decodeInput(r)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			// A missing book is reported before a malformed year.
			if _, getErr := h.service.Get(r.Context(), id); getErr != nil {
				err = getErr
			}
		}
		h.writeError(w, r, "Error updating book", err)
		return
	}

	b, err := h.service.Update(r.Context(), id, in, h.rules)
	if err != nil {
		h.writeError(w, r, "Error updating book", err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, b, "Book updated successfully")
}

// Delete handles DELETE /api/books/{id}
// @Summary Delete a book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /api/books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	if _, err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "Error deleting book", err)
		return
	}
	httpx.JSONSuccess(w, http.StatusOK, nil, "Book deleted successfully")
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var ve *ValidationError
	var bad errBadBody
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, ve.Message)
	case errors.As(err, &bad):
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body")
	default:
		h.serverError(w, r, message, err)
	}
}

func (h *HTTPHandler) serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message,
		zap.Error(err),
		zap.String("request_id", httpx.RequestIDFrom(r)),
	)
	httpx.JSONServerError(w, message, err, h.exposeErrors)
}
