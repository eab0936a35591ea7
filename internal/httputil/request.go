package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ParseJSON decodes the request body into dest, reading at most limit bytes.
// Oversized bodies yield an error matching *http.MaxBytesError.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// IsBodyTooLarge reports whether err came from the MaxBytesReader limit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
