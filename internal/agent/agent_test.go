package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req responsesRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %q, want /responses", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRespondUsesWebSearch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req responsesRequest) {
		if len(req.Tools) != 1 || req.Tools[0].Type != "web_search_preview" {
			t.Errorf("tools = %+v, want single web_search_preview", req.Tools)
		}
		if req.Tools[0].SearchContextSize != "medium" {
			t.Errorf("search_context_size = %q, want medium", req.Tools[0].SearchContextSize)
		}
		if req.Instructions == "" {
			t.Error("instructions should be set for chat")
		}
		json.NewEncoder(w).Encode(map[string]any{"output_text": "AAPL closed higher today."})
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "")
	got, err := c.Respond(context.Background(), "how did AAPL do today?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got != "AAPL closed higher today." {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondAddsFileSearchWithVectorStore(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req responsesRequest) {
		if len(req.Tools) != 2 {
			t.Fatalf("tools = %+v, want web search plus file search", req.Tools)
		}
		if req.Tools[1].Type != "file_search" {
			t.Errorf("second tool = %q, want file_search", req.Tools[1].Type)
		}
		if len(req.Tools[1].VectorStoreIDs) != 1 || req.Tools[1].VectorStoreIDs[0] != "vs_abc123" {
			t.Errorf("vector_store_ids = %v", req.Tools[1].VectorStoreIDs)
		}
		json.NewEncoder(w).Encode(map[string]any{"output_text": "ok"})
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "vs_abc123")
	if _, err := c.Respond(context.Background(), "question"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
}

func TestRespondFallsBackToMessageContent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ responsesRequest) {
		json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{"type": "reasoning"},
				{"type": "message", "content": []map[string]any{
					{"type": "output_text", "text": "from message block"},
				}},
			},
		})
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "")
	got, err := c.Respond(context.Background(), "q")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got != "from message block" {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondEmptyOutput(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ responsesRequest) {
		json.NewEncoder(w).Encode(map[string]any{})
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "")
	got, err := c.Respond(context.Background(), "q")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "couldn't process") {
		t.Errorf("Respond = %q, want fallback text", got)
	}
}

func TestSearchNewsOmitsInstructions(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req responsesRequest) {
		if req.Instructions != "" {
			t.Errorf("instructions = %q, want empty", req.Instructions)
		}
		if len(req.Tools) != 1 || req.Tools[0].Type != "web_search_preview" {
			t.Errorf("tools = %+v", req.Tools)
		}
		json.NewEncoder(w).Encode(map[string]any{"output_text": "headlines"})
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "")
	got, err := c.SearchNews(context.Background(), "fed rates")
	if err != nil {
		t.Fatalf("SearchNews: %v", err)
	}
	if got != "headlines" {
		t.Errorf("SearchNews = %q", got)
	}
}

func TestSearchFilesWithoutVectorStore(t *testing.T) {
	c := NewClient("http://unused.invalid", "test-key", "gpt-4o-mini", "")

	got, err := c.SearchFiles(context.Background(), "tax documents")
	if err != nil {
		t.Fatalf("SearchFiles: %v", err)
	}
	if got.Results != "Vector store not properly configured" {
		t.Errorf("Results = %q", got.Results)
	}
	if got.Query != "tax documents" || got.Source != "File search" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestSearchFilesPrefixesQuery(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req responsesRequest) {
		if !strings.HasPrefix(req.Input, "Search for information about: ") {
			t.Errorf("input = %q", req.Input)
		}
		json.NewEncoder(w).Encode(map[string]any{"output_text": "found it"})
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "vs_docs")
	got, err := c.SearchFiles(context.Background(), "retirement plan")
	if err != nil {
		t.Fatalf("SearchFiles: %v", err)
	}
	if got.Results != "found it" {
		t.Errorf("Results = %q", got.Results)
	}
}

func TestUpstreamErrorSurfaces(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ responsesRequest) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", "")
	_, err := c.Respond(context.Background(), "q")
	if err == nil {
		t.Fatal("Respond should fail on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %v should mention status code", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient("http://unused.invalid", "", "gpt-4o-mini", "")
	if _, err := c.Respond(context.Background(), "q"); err == nil {
		t.Fatal("Respond without API key should fail")
	}
}
