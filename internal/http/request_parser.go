package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"dolor/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// deleteRequest is the body of DELETE /api/{collection}.
type deleteRequest struct {
	IDs []string `json:"ids"`
}

// decodeJSON reads exactly one JSON value from the request body into dst.
// Numbers are kept as json.Number so amounts keep their decimal digits.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return badRequest("content type must be application/json")
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return badRequest("malformed JSON: %v", err)
	}
	if dec.More() {
		return badRequest("malformed JSON: trailing data")
	}
	return nil
}

// parseFields decodes a JSON object of record fields.
func parseFields(w http.ResponseWriter, r *http.Request) (core.Fields, error) {
	var fields core.Fields
	if err := decodeJSON(w, r, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, badRequest("request body must be a JSON object")
	}
	return fields, nil
}

// parseDeleteIDs decodes {"ids":[...]}.
func parseDeleteIDs(w http.ResponseWriter, r *http.Request) ([]string, error) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.IDs == nil {
		return nil, badRequest(`request body must carry an "ids" array`)
	}
	for _, id := range req.IDs {
		if id == "" {
			return nil, badRequest("ids must not be empty strings")
		}
	}
	return req.IDs, nil
}
