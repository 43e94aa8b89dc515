package markup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"draftServer/backend/internal/draft"
)

func TestClient_Annotate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/markup/annotate" {
			t.Errorf("path = %q, want /v1/markup/annotate", r.URL.Path)
		}
		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(annotateResponse{Sections: []draft.Section{
			{Index: 0, Title: "Intro", Body: req.Content},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/") // 末尾斜杠应被吞掉
	sections, err := c.Annotate(context.Background(), "d1", "hello")
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if len(sections) != 1 || sections[0].Title != "Intro" || sections[0].Body != "hello" {
		t.Fatalf("Annotate() = %+v, want one Intro section", sections)
	}
}

func TestClient_ApplyChangeToContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(applyResponse{Content: req.Content + "!"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.ApplyChangeToContent(context.Background(), "abc", &draft.SectionChange{ID: 1})
	if err != nil {
		t.Fatalf("ApplyChangeToContent() error = %v", err)
	}
	if got != "abc!" {
		t.Fatalf("ApplyChangeToContent() = %q, want %q", got, "abc!")
	}
}

func TestClient_Non200IsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Annotate(context.Background(), "d1", "x"); err == nil {
		t.Fatalf("Annotate() error = nil, want upstream error")
	}
}
