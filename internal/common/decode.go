package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DecodeJSON reads a JSON request body into dst. An empty body, malformed
// JSON or a type mismatch produce a BAD_REQUEST AppError.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return BadRequest("body", "request body is required", nil)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("body", "request body is required", err)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return BadRequest(typeErr.Field, "invalid value for "+typeErr.Field, err)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &AppError{Code: "PAYLOAD_TOO_LARGE", Message: "request body too large", HTTPStatus: http.StatusRequestEntityTooLarge, Err: err}
		}
		return BadRequest("body", "invalid JSON body", err)
	}
	return nil
}
