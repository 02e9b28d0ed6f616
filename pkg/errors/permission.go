package errors

import (
	"fmt"
	"strings"
)

// PermissionError reports an authenticated caller acting outside its role.
type PermissionError struct {
	Code     int      `json:"code"`
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

func NewPermissionError(code int, field string, messages ...string) *PermissionError {
	return &PermissionError{Code: code, Field: field, Messages: messages}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, strings.Join(e.Messages, ", "))
}
