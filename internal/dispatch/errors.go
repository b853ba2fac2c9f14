package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrNoData      = errors.New("all endpoints exhausted")
	ErrMalformed   = errors.New("response has no results list")
	ErrUndecodable = errors.New("response body is not json")
)

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}
