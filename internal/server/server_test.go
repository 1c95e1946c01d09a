package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bookshelf/internal/book"
	"bookshelf/internal/config"
	"bookshelf/internal/platform/database"
	"bookshelf/internal/testutil"
	"bookshelf/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func testConfig() config.Config {
	return config.Config{
		Env:            config.EnvTest,
		MaxBodyBytes:   1 << 20,
		CORSOrigins:    []string{"*"},
		RateLimitBurst: 20,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *book.SQLiteRepo) {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := book.NewSQLiteRepo(db)
	logger := zaptest.NewLogger(t)
	initializer := book.NewInitializer(repo, database.RetryPolicy{Attempts: 1}, logger)
	require.NoError(t, initializer.Run(context.Background()))

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	srv := New(Deps{
		Config:   cfg,
		Logger:   logger,
		Books:    repo,
		DB:       repo,
		Renderer: renderer,
	})
	t.Cleanup(srv.Close)
	return srv, repo
}

func serve(srv http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestServer_APIFlow(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	w := serve(srv, testutil.NewRequest(http.MethodGet, "/api/books", nil))
	res := testutil.RecordHTTPResponse(w)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.Body["data"], 4)

	w = serve(srv, testutil.NewRequest(http.MethodPost, "/api/books", map[string]any{
		"title":  "Dune",
		"author": "Frank Herbert",
	}))
	res = testutil.RecordHTTPResponse(w)
	require.Equal(t, http.StatusCreated, res.Code)
	data := res.Body["data"].(map[string]any)
	id := data["id"].(float64)
	assert.Greater(t, id, float64(0))
	assert.Equal(t, data["created_at"], data["updated_at"])

	w = serve(srv, testutil.NewRequest(http.MethodPost, "/api/books", map[string]any{"title": "Dune"}))
	res = testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, false, res.Body["success"])

	w = serve(srv, testutil.NewRequest(http.MethodPut, "/api/books/5", map[string]any{
		"title":          "Dune",
		"author":         "Frank Herbert",
		"published_year": 1965,
	}))
	res = testutil.RecordHTTPResponse(w)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, float64(1965), res.Body["data"].(map[string]any)["published_year"])

	w = serve(srv, testutil.NewRequest(http.MethodDelete, "/api/books/5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(srv, testutil.NewRequest(http.MethodGet, "/api/books/5", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(srv, testutil.NewRequest(http.MethodGet, "/api/books/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_DuplicateISBNIsServerError(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	w := serve(srv, testutil.NewRequest(http.MethodPost, "/api/books", map[string]any{
		"title":  "Another Gatsby",
		"author": "Someone",
		"isbn":   "9780743273565",
	}))

	res := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "Error creating book", res.Body["message"])
	assert.NotEmpty(t, res.Body["error"], "detail is shown outside production")
}

func TestServer_WebFlow(t *testing.T) {
	srv, repo := newTestServer(t, testConfig())

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/books", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The Great Gatsby")

	form := url.Values{
		"title":          {"Dune"},
		"author":         {"Frank Herbert"},
		"published_year": {"1965"},
		"genre":          {"Science Fiction"},
	}
	w = serve(srv, testutil.NewFormRequest(http.MethodPost, "/books", form))
	require.Equal(t, http.StatusFound, w.Code)
	path, q := testutil.Location(w)
	assert.Equal(t, "/books", path)
	assert.Equal(t, `Book "Dune" created successfully`, q.Get("success"))

	// Edit form posts with ?_method=PUT.
	form.Set("title", "Dune Messiah")
	w = serve(srv, testutil.NewFormRequest(http.MethodPost, "/books/5?_method=PUT", form))
	require.Equal(t, http.StatusFound, w.Code)
	path, _ = testutil.Location(w)
	assert.Equal(t, "/books/5", path)

	b, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", b.Title)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/books/5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune Messiah")

	w = serve(srv, httptest.NewRequest(http.MethodPost, "/books/5?_method=DELETE", nil))
	require.Equal(t, http.StatusFound, w.Code)
	_, q = testutil.Location(w)
	assert.Equal(t, "Book deleted successfully", q.Get("success"))

	_, err = repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestServer_WebValidationKeepsValues(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	w := serve(srv, testutil.NewFormRequest(http.MethodPost, "/books", url.Values{"title": {"Half typed"}}))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "All required fields must be filled")
	assert.Contains(t, body, `value="Half typed"`)
}

func TestServer_WebNotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/books/999", "/books/999/edit", "/books/xyz"} {
		w := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, w.Code, path)
		loc, q := testutil.Location(w)
		assert.Equal(t, "/books", loc)
		assert.Equal(t, "Book not found", q.Get("error"))
	}
}

func TestServer_Operational(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	t.Run("home", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/?error=Oops", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Oops")
	})

	t.Run("health", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "OK", res.Body["status"])
		assert.Equal(t, config.EnvTest, res.Body["environment"])
		_, err := time.Parse(time.RFC3339Nano, res.Body["timestamp"].(string))
		assert.NoError(t, err)
	})

	t.Run("ready", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", w.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		serve(srv, httptest.NewRequest(http.MethodGet, "/api/books", nil))
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `bookshelf_http_requests_total{method="GET",route="GET /api/books",status="200"}`)
	})

	t.Run("static", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/static/css/style.css", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Route not found"}`, w.Body.String())
	})

	t.Run("security headers and request id", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})
}

func TestServer_ReadyzUnavailable(t *testing.T) {
	renderer, err := web.NewRenderer()
	require.NoError(t, err)
	srv := New(Deps{
		Config:   testConfig(),
		Logger:   zaptest.NewLogger(t),
		DB:       failingPinger{},
		Renderer: renderer,
	})
	defer srv.Close()

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_ProductionHidesErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Env = config.EnvProduction
	srv, _ := newTestServer(t, cfg)

	w := serve(srv, testutil.NewRequest(http.MethodPost, "/api/books", map[string]any{
		"title": "x", "author": "y", "isbn": "9780743273565",
	}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, strings.Contains(w.Body.String(), `"error"`))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	srv, _ := newTestServer(t, cfg)

	first := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
