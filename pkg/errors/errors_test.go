package errors

import (
	stdErrors "errors"
	"fmt"
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
		{code: CodeNotRegistered, status: http.StatusForbidden, publicMsg: "stakeholder not registered"},
		{code: CodeAlreadyRegistered, status: http.StatusConflict, publicMsg: "stakeholder already registered"},
		{code: CodeWrongRole, status: http.StatusForbidden, publicMsg: "role not permitted for this operation", detailsOK: true},
		{code: CodeProductNotFound, status: http.StatusNotFound, publicMsg: "product not found"},
		{code: CodeUnauthorized, status: http.StatusForbidden, publicMsg: "caller is not the current custodian"},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, publicMsg: "status transition disallowed", detailsOK: true},
		{code: CodeHashMismatch, status: http.StatusConflict, publicMsg: "content hash does not match ledger record", detailsOK: true},
		{code: CodeIndexUnavailable, status: http.StatusServiceUnavailable, publicMsg: "index temporarily unavailable", retryable: true, detailsOK: true},
		{code: CodeTimeout, status: http.StatusGatewayTimeout, publicMsg: "operation timed out", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
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

func TestLedgerCodesAreTerminal(t *testing.T) {
	for _, code := range []Code{
		CodeNotRegistered,
		CodeAlreadyRegistered,
		CodeWrongRole,
		CodeProductNotFound,
		CodeUnauthorized,
		CodeInvalidTransition,
	} {
		if MetadataFor(code).Retryable {
			t.Fatalf("ledger code %s must not be retryable", code)
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
	base := New(CodeValidation, "missing quantity")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing quantity" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "quantity"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "ledger fetch")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := New(CodeUnauthorized, "not custodian")
	wrapped := fmt.Errorf("transfer: %w", err)

	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeUnauthorized {
		t.Fatalf("expected typed unauthorized error, got %v", typed)
	}
	if !HasCode(wrapped, CodeUnauthorized) {
		t.Fatalf("HasCode should see through wrapping")
	}
	if HasCode(wrapped, CodeProductNotFound) {
		t.Fatalf("HasCode matched the wrong code")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("As should return nil for untyped errors")
	}
}
