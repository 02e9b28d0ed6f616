package response

import "farmstand-realtime/pkg/errors"

type Resp struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

// ErrorMapping maps domain errors onto HTTP errors.
type ErrorMapping map[error]*errors.HTTPError
