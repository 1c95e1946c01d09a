package httpx

import (
	"mime"
	"net/http"
	"strings"
)

const (
	methodOverrideParam  = "_method"
	methodOverrideHeader = "X-HTTP-Method-Override"
)

var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverrideMiddleware lets HTML forms, which can only GET or POST,
// reach PUT/PATCH/DELETE routes. A POST carrying _method in its query
// string or urlencoded body, or the X-HTTP-Method-Override header, is
// rewritten before routing.
func MethodOverrideMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if m := overrideMethod(r); overridableMethods[m] {
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func overrideMethod(r *http.Request) string {
	if m := r.URL.Query().Get(methodOverrideParam); m != "" {
		return strings.ToUpper(m)
	}
	if m := r.Header.Get(methodOverrideHeader); m != "" {
		return strings.ToUpper(m)
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err == nil {
			return strings.ToUpper(r.PostForm.Get(methodOverrideParam))
		}
	}
	return ""
}
