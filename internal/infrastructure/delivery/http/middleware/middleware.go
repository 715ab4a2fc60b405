// Package middleware holds the http middlewares of the observability listener.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey stores the request id in the request context.
const RequestIDKey contextKey = "requestID"

// HeaderXRequestID carries the request id.
const HeaderXRequestID = "X-Request-ID"

type requestLog struct {
	Method     string `json:"method"`
	URI        string `json:"uri"`
	RemoteAddr string `json:"remote_addr"`
	Proto      string `json:"proto"`
}

// Recoverer turns a handler panic into a 500 and logs it. http.ErrAbortHandler is re-raised.
func Recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if rvr == http.ErrAbortHandler { //nolint:errorlint
					panic(rvr)
				}

				log.ErrorContext(r.Context(), "handler panic", slog.Any("panic", rvr), slog.String("uri", r.RequestURI))
				w.WriteHeader(http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID propagates or generates the X-Request-ID header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs every request at debug level.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID, _ := r.Context().Value(RequestIDKey).(string)

			log.DebugContext(r.Context(), "http request",
				slog.String("request_id", reqID),
				slog.Any("request", requestLog{
					Method:     r.Method,
					URI:        r.RequestURI,
					RemoteAddr: r.RemoteAddr,
					Proto:      r.Proto,
				}))
			next.ServeHTTP(w, r)
		})
	}
}
