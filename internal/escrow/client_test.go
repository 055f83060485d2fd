package escrow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRelease_OK(t *testing.T) {
	var got ReleaseRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/escrow/release" || r.Method != http.MethodPost {
			t.Errorf("path=%s method=%s", r.URL.Path, r.Method)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"reference":"prov-1"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/", Token: "secret"}
	res, err := c.Release(context.Background(), ReleaseRequest{
		EscrowID: "esc-1", NetToSellerCents: 92000, FeeToPlatformCents: 18000, Reference: "settle:a1",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.OK || res.Reference != "prov-1" {
		t.Fatalf("res=%+v", res)
	}
	if auth != "Bearer secret" {
		t.Fatalf("auth=%q", auth)
	}
	if got.NetToSellerCents != 92000 || got.FeeToPlatformCents != 18000 || got.Reference != "settle:a1" {
		t.Fatalf("request=%+v", got)
	}
}

func TestRelease_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`insufficient funds`))
	}))
	defer srv.Close()

	res, err := (&Client{BaseURL: srv.URL}).Release(context.Background(), ReleaseRequest{EscrowID: "e", Reference: "r"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.OK || res.Status != http.StatusUnprocessableEntity || res.Body != "insufficient funds" {
		t.Fatalf("res=%+v", res)
	}
}

func TestRelease_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := (&Client{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}).Release(context.Background(), ReleaseRequest{EscrowID: "e", Reference: "r"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
