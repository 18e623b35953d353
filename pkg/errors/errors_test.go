package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeOrderClosed, status: http.StatusUnprocessableEntity, publicMsg: "group order is not accepting joins", detailsOK: true},
		{code: CodeDeadlinePassed, status: http.StatusUnprocessableEntity, publicMsg: "group order deadline has passed", detailsOK: true},
		{code: CodeCapacityExceeded, status: http.StatusUnprocessableEntity, publicMsg: "participant limit reached", detailsOK: true},
		{code: CodeNotAParticipant, status: http.StatusUnprocessableEntity, publicMsg: "vendor is not a participant", detailsOK: true},
		{code: CodeOrderLocked, status: http.StatusUnprocessableEntity, publicMsg: "group order is locked", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeUpdateConflict, status: http.StatusConflict, publicMsg: "concurrent update conflict, retry", retryable: true, detailsOK: true},
		{code: CodeAllocationExhausted, status: http.StatusConflict, publicMsg: "order number allocation exhausted, retry", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeUpdateConflict, cause, "commit group order")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeUpdateConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeCapacityExceeded, "limit reached")
	if !HasCode(err, CodeCapacityExceeded) {
		t.Fatalf("HasCode missed a direct match")
	}
	if HasCode(err, CodeOrderClosed) {
		t.Fatalf("HasCode matched the wrong code")
	}
	if HasCode(nil, CodeOrderClosed) {
		t.Fatalf("HasCode(nil) should be false")
	}

	cause := New(CodeDeadlinePassed, "too late")
	wrapped := Wrap(CodeInternal, cause, "join failed")
	if !HasCode(wrapped, CodeInternal) {
		t.Fatalf("HasCode missed the outer code")
	}
}
