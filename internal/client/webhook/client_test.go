package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend_OK(t *testing.T) {
	var gotKind string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKind = r.Header.Get("X-Oracle-Event")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "")
	if err := c.Send(context.Background(), "settlement.recorded", []byte(`{}`)); err != nil {
		t.Fatalf("err=%v", err)
	}
	if gotKind != "settlement.recorded" {
		t.Fatalf("kind header=%q", gotKind)
	}
}

func TestSend_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "")
	err := c.Send(context.Background(), "batch.committed", []byte(`{}`))
	if err == nil {
		t.Fatalf("expected error for 502")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Fatalf("status=%d", apiErr.Status)
	}
}

func TestSend_NoEndpoint(t *testing.T) {
	c := NewClient(http.DefaultClient, "", "")
	if err := c.Send(context.Background(), "settlement.recorded", nil); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}
