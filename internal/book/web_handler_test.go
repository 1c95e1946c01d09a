package book

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"bookshelf/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRenderer struct {
	name string
	data any
}

func (r *recordingRenderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	r.name = name
	r.data = data
	w.WriteHeader(status)
	return nil
}

func newTestWebHandler(t *testing.T) (*WebHandler, *MockRepository, *recordingRenderer) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockRepository(ctrl)
	renderer := &recordingRenderer{}
	return NewWebHandler(NewService(mockRepo), renderer, zap.NewNop()), mockRepo, renderer
}

func validForm() url.Values {
	return url.Values{
		"title":          {"Dune"},
		"author":         {"Frank Herbert"},
		"published_year": {"1965"},
		"genre":          {"SF"},
		"isbn":           {""},
		"description":    {""},
	}
}

func TestWebHandler_Home(t *testing.T) {
	handler, _, renderer := newTestWebHandler(t)

	w := httptest.NewRecorder()
	handler.Home(w, httptest.NewRequest(http.MethodGet, "/?success=Saved", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, PageHome, renderer.name)
	assert.Equal(t, Flash{Success: "Saved"}, renderer.data)
}

func TestWebHandler_List(t *testing.T) {
	handler, mockRepo, renderer := newTestWebHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any()).Return([]Book{{ID: 1}}, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/books?success=Book+created+successfully", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		page := renderer.data.(IndexPage)
		assert.Len(t, page.Books, 1)
		assert.Equal(t, "Book created successfully", page.Success)
	})

	t.Run("error renders banner", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any()).Return(nil, errors.New("db down"))

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/books", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		page := renderer.data.(IndexPage)
		assert.Empty(t, page.Books)
		assert.Equal(t, "Error retrieving books", page.Error)
	})
}

func TestWebHandler_Show(t *testing.T) {
	handler, mockRepo, renderer := newTestWebHandler(t)

	tests := []struct {
		name      string
		id        string
		setup     func()
		wantPath  string
		wantError string
	}{
		{
			name:     "found",
			id:       "1",
			setup:    func() { mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(Book{ID: 1}, nil) },
			wantPath: "",
		},
		{
			name:      "missing",
			id:        "9",
			setup:     func() { mockRepo.EXPECT().GetByID(gomock.Any(), int64(9)).Return(Book{}, ErrNotFound) },
			wantPath:  "/books",
			wantError: "Book not found",
		},
		{
			name:      "non-integer",
			id:        "nope",
			setup:     func() {},
			wantPath:  "/books",
			wantError: "Book not found",
		},
		{
			name:      "store error",
			id:        "1",
			setup:     func() { mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(Book{}, errors.New("x")) },
			wantPath:  "/books",
			wantError: "Error retrieving book",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			renderer.name = ""
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/books/"+tt.id, nil)
			r.SetPathValue("id", tt.id)

			handler.Show(w, r)

			if tt.wantPath == "" {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, PageShow, renderer.name)
				return
			}
			assert.Equal(t, http.StatusFound, w.Code)
			path, q := testutil.Location(w)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantError, q.Get("error"))
		})
	}
}

func TestWebHandler_Edit(t *testing.T) {
	handler, mockRepo, renderer := newTestWebHandler(t)
	mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(Book{ID: 1, Title: "Dune", PublishedYear: ptr(1965)}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/books/1/edit", nil)
	r.SetPathValue("id", "1")
	handler.Edit(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, PageEdit, renderer.name)
	page := renderer.data.(FormPage)
	assert.Equal(t, "Dune", page.Form.Title)
	assert.Equal(t, "1965", page.Form.PublishedYear)
}

func TestWebHandler_Create(t *testing.T) {
	handler, mockRepo, renderer := newTestWebHandler(t)

	t.Run("redirects on success", func(t *testing.T) {
		want := Input{Title: "Dune", Author: "Frank Herbert", PublishedYear: ptr(1965), Genre: ptr("SF")}
		mockRepo.EXPECT().Create(gomock.Any(), want).Return(Book{ID: 1, Title: "Dune"}, nil)

		w := httptest.NewRecorder()
		handler.Create(w, testutil.NewFormRequest(http.MethodPost, "/books", validForm()))

		assert.Equal(t, http.StatusFound, w.Code)
		path, q := testutil.Location(w)
		assert.Equal(t, "/books", path)
		assert.Equal(t, `Book "Dune" created successfully`, q.Get("success"))
	})

	t.Run("re-renders with submitted values", func(t *testing.T) {
		form := validForm()
		form.Set("genre", "")

		w := httptest.NewRecorder()
		handler.Create(w, testutil.NewFormRequest(http.MethodPost, "/books", form))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, PageNew, renderer.name)
		page := renderer.data.(FormPage)
		assert.Equal(t, "All required fields must be filled", page.Error)
		assert.Equal(t, "Dune", page.Form.Title)
		assert.Equal(t, "1965", page.Form.PublishedYear)
	})

	t.Run("non-numeric year", func(t *testing.T) {
		form := validForm()
		form.Set("published_year", "nineteen")

		w := httptest.NewRecorder()
		handler.Create(w, testutil.NewFormRequest(http.MethodPost, "/books", form))

		page := renderer.data.(FormPage)
		assert.Equal(t, "Published year must be a whole number", page.Error)
		assert.Equal(t, "nineteen", page.Form.PublishedYear)
	})

	t.Run("store error", func(t *testing.T) {
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(Book{}, errors.New("unique violation"))

		w := httptest.NewRecorder()
		handler.Create(w, testutil.NewFormRequest(http.MethodPost, "/books", validForm()))

		assert.Equal(t, http.StatusOK, w.Code)
		page := renderer.data.(FormPage)
		assert.Equal(t, "Error creating book", page.Error)
	})
}

func TestWebHandler_Update(t *testing.T) {
	handler, mockRepo, renderer := newTestWebHandler(t)
	existing := Book{ID: 2, Title: "Old", Author: "A"}

	newRequest := func(id string, form url.Values) *http.Request {
		r := testutil.NewFormRequest(http.MethodPut, "/books/"+id, form)
		r.SetPathValue("id", id)
		return r
	}

	t.Run("redirects to the book", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(2)).Return(existing, nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(2), gomock.Any()).Return(Book{ID: 2}, nil)

		w := httptest.NewRecorder()
		handler.Update(w, newRequest("2", validForm()))

		assert.Equal(t, http.StatusFound, w.Code)
		path, q := testutil.Location(w)
		assert.Equal(t, "/books/2", path)
		assert.Equal(t, "Book updated successfully", q.Get("success"))
	})

	t.Run("missing", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(2)).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		handler.Update(w, newRequest("2", url.Values{}))

		path, q := testutil.Location(w)
		assert.Equal(t, "/books", path)
		assert.Equal(t, "Book not found", q.Get("error"))
	})

	t.Run("invalid re-renders edit", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(2)).Return(existing, nil)

		w := httptest.NewRecorder()
		handler.Update(w, newRequest("2", url.Values{"title": {"New"}}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, PageEdit, renderer.name)
		page := renderer.data.(FormPage)
		assert.Equal(t, existing, page.Book)
		assert.Equal(t, "New", page.Form.Title)
	})

	t.Run("bad year on missing book", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(2)).Return(Book{}, ErrNotFound)
		form := validForm()
		form.Set("published_year", "x")

		w := httptest.NewRecorder()
		handler.Update(w, newRequest("2", form))

		assert.Equal(t, http.StatusFound, w.Code)
	})

	t.Run("store error", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(2)).Return(existing, nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(2), gomock.Any()).Return(Book{}, errors.New("x"))

		w := httptest.NewRecorder()
		handler.Update(w, newRequest("2", validForm()))

		path, q := testutil.Location(w)
		assert.Equal(t, "/books/2", path)
		assert.Equal(t, "Error updating book", q.Get("error"))
	})
}

func TestWebHandler_Delete(t *testing.T) {
	handler, mockRepo, _ := newTestWebHandler(t)

	tests := []struct {
		name    string
		setup   func()
		wantKey string
		wantMsg string
	}{
		{
			name: "deleted",
			setup: func() {
				mockRepo.EXPECT().GetByID(gomock.Any(), int64(3)).Return(Book{ID: 3}, nil)
				mockRepo.EXPECT().Delete(gomock.Any(), int64(3)).Return(Book{ID: 3}, nil)
			},
			wantKey: "success",
			wantMsg: "Book deleted successfully",
		},
		{
			name: "missing",
			setup: func() {
				mockRepo.EXPECT().GetByID(gomock.Any(), int64(3)).Return(Book{}, ErrNotFound)
			},
			wantKey: "error",
			wantMsg: "Book not found",
		},
		{
			name: "store error",
			setup: func() {
				mockRepo.EXPECT().GetByID(gomock.Any(), int64(3)).Return(Book{ID: 3}, nil)
				mockRepo.EXPECT().Delete(gomock.Any(), int64(3)).Return(Book{}, errors.New("x"))
			},
			wantKey: "error",
			wantMsg: "Error deleting book",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodDelete, "/books/3", nil)
			r.SetPathValue("id", "3")

			handler.Delete(w, r)

			require.Equal(t, http.StatusFound, w.Code)
			path, q := testutil.Location(w)
			assert.Equal(t, "/books", path)
			assert.Equal(t, tt.wantMsg, q.Get(tt.wantKey))
		})
	}
}
