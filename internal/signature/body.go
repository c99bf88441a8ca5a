package signature

import (
	"bytes"
	"io"
	"net/http"
)

// PreserveRequestBody reads the request body once and replaces it with a
// re-readable copy so downstream handlers still see the full payload.
func PreserveRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
