package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrNetwork covers transport failures: unreachable backend, timeouts and
	// bodies that are not a JSON envelope.
	ErrNetwork = errors.New("network error occurred")
	// ErrSessionExpired is returned when a 401 could not be recovered by a
	// token refresh. The stored tokens have already been cleared.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// Error is an application-level failure reported by the backend.
type Error struct {
	HTTPStatus int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.HTTPStatus, e.Message)
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// SearchMetadata is the search endpoint's metadata block.
type SearchMetadata struct {
	Query        string  `json:"query"`
	TotalResults int     `json:"totalResults"`
	SearchTimeMs float64 `json:"searchTime"`
	HasNext      bool    `json:"hasNext"`
	HasPrevious  bool    `json:"hasPrevious"`
}

// Envelope is the uniform response shape of every backend call.
type Envelope[T any] struct {
	Status     string          `json:"status"`
	Data       T               `json:"data"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Errors     []any           `json:"errors,omitempty"`

	HTTPStatus int  `json:"-"`
	HasData    bool `json:"-"`
}

func (e *Envelope[T]) OK() bool { return e != nil && e.Status == StatusSuccess }

// Err returns nil for a success envelope and an *Error otherwise.
func (e *Envelope[T]) Err() error {
	if e.OK() {
		return nil
	}
	if e == nil {
		return &Error{Message: "empty response"}
	}
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return &Error{HTTPStatus: e.HTTPStatus, Message: msg}
}

// Data unwraps a call result into its payload, turning an error envelope
// into an *Error.
func Data[T any](env *Envelope[T], err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if err := env.Err(); err != nil {
		return zero, err
	}
	return env.Data, nil
}

// SearchMeta decodes Metadata as search metadata. The block is optional and
// loosely specified, so a shape mismatch reports false instead of failing the
// whole response.
func (e *Envelope[T]) SearchMeta() (SearchMetadata, bool) {
	var m SearchMetadata
	if e == nil || len(e.Metadata) == 0 || string(e.Metadata) == "null" {
		return m, false
	}
	if err := json.Unmarshal(e.Metadata, &m); err != nil {
		return m, false
	}
	return m, true
}

func decode[T any](status int, raw []byte) (*Envelope[T], error) {
	env := &Envelope[T]{HTTPStatus: status}
	if len(raw) == 0 {
		// 204 and friends
		if status >= 200 && status < 300 {
			env.Status = StatusSuccess
			return env, nil
		}
		return nil, fmt.Errorf("%w: empty body with status %d", ErrNetwork, status)
	}
	var head struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrNetwork, err)
	}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrNetwork, err)
	}
	env.HasData = len(head.Data) > 0 && string(head.Data) != "null"
	if env.Status == "" {
		if status >= 400 {
			env.Status = StatusError
		} else {
			env.Status = StatusSuccess
		}
	}
	return env, nil
}
