package apperror

import (
	"encoding/json"
	"errors"
	"io"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func NewResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Error:   Code(err),
		Code:    Code(err),
		Message: SafeMessage(err),
	}

	var appErr *Error
	switch {
	case !errors.As(err, &appErr):
		resp.Detail = err.Error()
	case appErr.Internal != nil:
		resp.Detail = appErr.Internal.Error()
	}
	return resp
}

// WriteJSON reports err as a single JSON object, for scripted callers.
func WriteJSON(w io.Writer, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewResponse(err))
}
