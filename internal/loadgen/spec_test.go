package loadgen

import (
	"errors"
	"fmt"
	"testing"
)

func TestPromptForRotation(t *testing.T) {
	spec := RequestSpec{Prompts: []string{"a", "b", "c"}}

	for index, want := range []string{"a", "b", "c", "a", "b"} {
		if got := spec.PromptFor(index); got != want {
			t.Errorf("PromptFor(%d): expected %q, got %q", index, want, got)
		}
	}
}

func TestPromptForEmpty(t *testing.T) {
	spec := RequestSpec{}
	if got := spec.PromptFor(0); got != "" {
		t.Errorf("Expected empty prompt for empty pool, got %q", got)
	}
}

func TestRequestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &RequestError{Kind: ErrConnection, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("RequestError must unwrap to its cause")
	}

	var reqErr *RequestError
	wrapped := fmt.Errorf("request 3: %w", err)
	if !errors.As(wrapped, &reqErr) {
		t.Fatal("Wrapped RequestError must still match errors.As")
	}
	if reqErr.Kind != ErrConnection {
		t.Errorf("Expected kind %q, got %q", ErrConnection, reqErr.Kind)
	}
}

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{Kind: ErrHTTP, Status: 503, Err: fmt.Errorf("overloaded")}
	message := err.Error()
	if message == "" {
		t.Fatal("Expected a non-empty error message")
	}
}
