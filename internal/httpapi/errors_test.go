package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/signet-ai/signet/internal/signeterr"
)

func TestStatusForCode(t *testing.T) {
	cases := []struct {
		code signeterr.Code
		want int
	}{
		{signeterr.CodeNotFound, http.StatusNotFound},
		{signeterr.CodeVersionConflict, http.StatusConflict},
		{signeterr.CodeDeleted, http.StatusConflict},
		{signeterr.CodePinnedRequiresForce, http.StatusPreconditionFailed},
		{signeterr.CodeForbidden, http.StatusForbidden},
		{signeterr.CodeTimeout, http.StatusGatewayTimeout},
		{signeterr.CodeInvalidPayload, http.StatusBadRequest},
		{signeterr.CodeDependencyUnavailable, http.StatusServiceUnavailable},
		{signeterr.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range cases {
		if got := statusForCode(tt.code); got != tt.want {
			t.Errorf("statusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteErrorTypedError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, signeterr.NotFound("memory not found: abc"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != string(signeterr.CodeNotFound) {
		t.Errorf("error.code = %q, want %q", body.Error.Code, signeterr.CodeNotFound)
	}
	if body.Error.Message != "memory not found: abc" {
		t.Errorf("error.message = %q", body.Error.Message)
	}
}

func TestWriteErrorOpaqueError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errPlain("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Message != "internal error" {
		t.Errorf("opaque error should not leak its message, got %q", body.Error.Message)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	var v map[string]any
	err := decodeJSON(req, &v)
	if err == nil {
		t.Fatal("expected error for nil body")
	}
	se, ok := signeterr.As(err)
	if !ok || se.Code != signeterr.CodeInvalidPayload {
		t.Errorf("expected invalid_payload error, got %v", err)
	}
}
