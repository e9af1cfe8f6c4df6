package middleware

import (
	"net/http"
	"strings"
)

// DefaultMaxRequestSize bounds request bodies. Assistant messages are short utterances.
const DefaultMaxRequestSize int64 = 64 << 10

// JSONBody guards request bodies. No body may exceed maxBytes, and POST, PUT and PATCH bodies
// must be application/json. A bodiless POST passes, so a generate trigger needs no payload.
func JSONBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "request body exceeds the size limit", nil)
				return
			}

			if carriesJSON(r.Method) {
				switch contentType := r.Header.Get("Content-Type"); {
				case contentType == "" && r.ContentLength != 0:
					respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Content-Type header is required", nil)
					return
				case contentType != "" && !isJSON(contentType):
					respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json", nil)
					return
				}
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func carriesJSON(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func isJSON(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/json")
}
