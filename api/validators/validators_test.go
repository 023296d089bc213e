package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/medicalcare-backend/pkg/errors"
)

type rejectPayload struct {
	RejectionReason string `json:"rejectionReason" validate:"required"`
	Version         *int64 `json:"version,omitempty"`
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDecodeJSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/applications/1/reject", strings.NewReader(`{"rejectionReason":"missing"}`))
	var payload rejectPayload
	if err := DecodeJSONBody(r, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.RejectionReason != "missing" || payload.Version != nil {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rejectionReason":"x","extra":true}`))
	var payload rejectPayload
	err := DecodeJSONBody(r, &payload)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rejectionReason":""}`))
	var payload rejectPayload
	err := DecodeJSONBody(r, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["rejectionReason"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	var payload rejectPayload
	if err := DecodeJSONBody(r, &payload); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "42", want: 42},
		{raw: " 7 ", want: 7},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
	}
	for _, tt := range tests {
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", tt.raw)
		got, err := ParseIDParam(r, "id")
		if tt.wantErr {
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("raw %q: expected validation error, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("raw %q: expected %d got %d err=%v", tt.raw, tt.want, got, err)
		}
	}
}

func TestPathParam(t *testing.T) {
	r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "code", "  H001 ")
	got, err := PathParam(r, "code")
	if err != nil || got != "H001" {
		t.Fatalf("expected H001, got %q err=%v", got, err)
	}

	r = withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "code", "   ")
	if _, err := PathParam(r, "code"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  abcdef  ", 3); got != "abc" {
		t.Fatalf("expected truncated value, got %q", got)
	}
	if got := SanitizeString(" x ", 0); got != "x" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; cutting at 2 would split it.
	if got := SanitizeString("aé", 2); got != "a" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rejectionReason":"a"}{"rejectionReason":"b"}`))
	var payload rejectPayload
	if err := DecodeJSONBody(r, &payload); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	big := `{"rejectionReason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var payload rejectPayload
	err := DecodeJSONBody(r, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "request body too large" {
		t.Fatalf("expected body too large, got %v", err)
	}
}

func TestDecodeJSONBodyEmptyBodyMessage(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var payload rejectPayload
	typed := pkgerrors.As(DecodeJSONBody(r, &payload))
	if typed == nil || typed.Message() != "request body is required" {
		t.Fatalf("unexpected error %v", typed)
	}
}
