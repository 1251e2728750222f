package turnstile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerify_DisabledWithoutSecret(t *testing.T) {
	v := New("")
	if v.Enabled() {
		t.Error("Enabled() = true with empty secret")
	}
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Errorf("Verify() with verification disabled = %v, want nil", err)
	}
}

func TestVerify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("secret"); got != "shh" {
			t.Errorf("secret = %q, want %q", got, "shh")
		}
		if got := r.PostForm.Get("response"); got != "tok-1" {
			t.Errorf("response = %q, want %q", got, "tok-1")
		}
		if got := r.PostForm.Get("remoteip"); got != "203.0.113.9" {
			t.Errorf("remoteip = %q, want %q", got, "203.0.113.9")
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	v := New("shh")
	v.endpoint = srv.URL
	if err := v.Verify(context.Background(), "tok-1", "203.0.113.9"); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestVerify_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":     false,
			"error-codes": []string{"invalid-input-response"},
		})
	}))
	defer srv.Close()

	v := New("shh")
	v.endpoint = srv.URL
	if err := v.Verify(context.Background(), "bad-token", ""); err == nil {
		t.Error("Verify() = nil, want error for rejected token")
	}
}

func TestVerify_MissingToken(t *testing.T) {
	v := New("shh")
	if err := v.Verify(context.Background(), "", ""); err == nil {
		t.Error("Verify() = nil, want error for missing token")
	}
}
