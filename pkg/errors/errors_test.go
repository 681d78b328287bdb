package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestAppErrorMessageIncludesInternal(t *testing.T) {
	internal := stderrors.New("disk full")
	err := Wrap(internal, "failed to persist grant")

	if got := err.Error(); got != "failed to persist grant: disk full" {
		t.Fatalf("unexpected error string: %q", got)
	}

	if !stderrors.Is(err, internal) {
		t.Fatal("expected wrapped error to match with errors.Is")
	}
}

func TestFromErrorPassesThroughAppErrors(t *testing.T) {
	if got := FromError(ErrAccessDenied); got != ErrAccessDenied {
		t.Fatalf("expected sentinel to pass through, got %+v", got)
	}
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(stderrors.New("boom"))
	if got.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", got.Code)
	}
	if got.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got.StatusCode)
	}
}

func TestAccessDeniedIsForbidden(t *testing.T) {
	if ErrAccessDenied.StatusCode != http.StatusForbidden {
		t.Fatalf("access denial must map to 403, got %d", ErrAccessDenied.StatusCode)
	}
}
