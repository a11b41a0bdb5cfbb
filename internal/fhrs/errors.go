package fhrs

import (
	"fmt"
)

const maxBodyExcerpt = 512

// StatusError is a non-2xx response that is not worth retrying.
type StatusError struct {
	Url        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt] + "..."
	}
	return fmt.Sprintf("GET %s: unexpected status %s: %s", e.Url, e.Status, body)
}

// ExhaustedError is returned once every attempt of a retried fetch has failed.
// Last is the error (or *StatusError for a 504) observed on the final attempt.
type ExhaustedError struct {
	Url      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("GET %s: gave up after %d attempts: %s", e.Url, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
