package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStackHandlersRejectBadRequests(t *testing.T) {
	h := NewStack(nil, slog.New(slog.DiscardHandler))

	cases := []struct {
		name    string
		handler http.HandlerFunc
		body    string
	}{
		{"up invalid json", h.Up, "{not json"},
		{"up missing domain", h.Up, `{"stack":{}}`},
		{"up shared volume name", h.Up, `{"stack":{"domain":"example.test","volumes":{"database":"data","site":"data"}}}`},
		{"up shared container name", h.Up, `{"stack":{"domain":"example.test","database":{"name":"web"},"app":{"name":"web"}}}`},
		{"down missing domain", h.Down, `{"stack":{},"remove_data":true}`},
		{"status missing domain", h.Status, `{"stack":{}}`},
		{"verify missing domain", h.Verify, `{"stack":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			tc.handler(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var resp GenericResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Message == "" {
				t.Fatal("error response carries no message")
			}
		})
	}
}

func TestMachineHandlersRejectBadRequests(t *testing.T) {
	h := NewMachine(nil, slog.New(slog.DiscardHandler))

	cases := []struct {
		name    string
		handler http.HandlerFunc
		body    string
	}{
		{"create missing name", h.Create, `{}`},
		{"delete missing name", h.Delete, `{}`},
		{"provision missing ssh", h.Provision, `{"name":"dev"}`},
		{"info missing name", h.Info, `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			tc.handler(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
