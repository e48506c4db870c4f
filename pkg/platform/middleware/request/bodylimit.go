package request

import "net/http"

// BodyLimit caps request bodies at maxBytes. Reads past the cap fail, which
// the JSON decoder surfaces as a 400. Apply before any body parsing.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
