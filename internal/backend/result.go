package backend

import (
	"errors"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// Result is a validated backend answer: either Ok with a value or Err with
// the backend's message
type Result[T any] struct {
	ok      bool
	value   T
	message string
}

// Ok wraps a successful value
func Ok[T any](value T) Result[T] {
	return Result[T]{ok: true, value: value}
}

// Err wraps a rejection
func Err[T any](message string) Result[T] {
	if message == "" {
		message = "request not accepted"
	}
	return Result[T]{message: message}
}

func (r Result[T]) IsOk() bool {
	return r.ok
}

// Message is the rejection reason; empty for Ok
func (r Result[T]) Message() string {
	return r.message
}

// Unwrap returns the value, or ErrBackendRejected carrying the message
func (r Result[T]) Unwrap() (T, error) {
	if !r.ok {
		var zero T
		return zero, domain.ErrBackendRejected.WithError(errors.New(r.message))
	}
	return r.value, nil
}

// Unit is the payload of results that carry no data
type Unit struct{}

func statusResult(resp StatusResponse) Result[Unit] {
	if !resp.Worked {
		return Err[Unit](resp.Message)
	}
	return Ok(Unit{})
}

func listResult(resp ListResponse) Result[[]string] {
	if !resp.Worked {
		return Err[[]string](resp.Message)
	}
	names := make([]string, 0, len(resp.Names))
	for _, n := range resp.Names {
		if n == "" {
			return Err[[]string]("empty name in list")
		}
		names = append(names, n)
	}
	return Ok(names)
}

func embeddingResult(resp EmbeddingResponse) Result[[]float64] {
	if !resp.Worked {
		return Err[[]float64](resp.Message)
	}
	if len(resp.Embedding) == 0 {
		return Err[[]float64]("empty embedding")
	}
	return Ok(resp.Embedding)
}
