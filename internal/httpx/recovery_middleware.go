package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// RecoveryMiddleware turns a panicking handler into a 500 envelope. The panic
// value is sent to the client only when exposeErrors is set.
func RecoveryMiddleware(logger *zap.Logger, exposeErrors bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.String("request_id", RequestIDFrom(r)),
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				if rw, ok := w.(*responseWriter); ok && rw.wroteHeader() {
					return
				}
				JSONServerError(w, "Internal server error", fmt.Errorf("%v", rec), exposeErrors)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
