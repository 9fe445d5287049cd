package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorsAsThroughWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("extract: %w", &RemoteError{StatusCode: 503, URL: "http://x/thing"})
	var re *RemoteError
	if !errors.As(wrapped, &re) {
		t.Fatalf("errors.As failed for %v", wrapped)
	}
	if re.StatusCode != 503 {
		t.Fatalf("StatusCode = %d, want 503", re.StatusCode)
	}
}

func TestLinkNotFoundIs(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("dump: %w", &LinkNotFoundError{Page: "http://x/data_dumps/bg_ranks"})
	if !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("errors.Is(%v, ErrLinkNotFound) = false", err)
	}
}

func TestXMLParseErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &XMLParseError{Path: "0001.xml", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("want unwrap to io.ErrUnexpectedEOF")
	}
	if got, want := err.Error(), "parse xml 0001.xml: unexpected EOF"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{&AuthenticationError{StatusCode: 401}, "authentication unsuccessful: status code 401 returned"},
		{&ConfigurationError{Field: "batch_size", Message: "must be >= 1, got 0"}, "invalid batch_size: must be >= 1, got 0"},
		{&LinkNotFoundError{}, "download link not found"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
