// Package agent calls the hosted model responses API for the chat
// assistant and its search tools.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const instructions = "You are a helpful finance assistant. Use web search for market data and news. For calculations and data analysis, explain the process clearly."

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("assistant API key not configured")

type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	model         string
	vectorStoreID string
}

// FileSearchResult carries the answer for a document search.
type FileSearchResult struct {
	Query   string `json:"query"`
	Results string `json:"results"`
	Source  string `json:"source"`
}

func NewClient(baseURL, apiKey, model, vectorStoreID string) *Client {
	return &Client{
		httpClient:    newHTTPClientWithPooling(),
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		model:         model,
		vectorStoreID: vectorStoreID,
	}
}

// newHTTPClientWithPooling builds an HTTP client with connection pooling
// and keep-alive tuned for a single upstream API host.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

type tool struct {
	Type              string   `json:"type"`
	SearchContextSize string   `json:"search_context_size,omitempty"`
	VectorStoreIDs    []string `json:"vector_store_ids,omitempty"`
	MaxNumResults     int      `json:"max_num_results,omitempty"`
}

type responsesRequest struct {
	Model        string `json:"model"`
	Tools        []tool `json:"tools,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Input        string `json:"input"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// hasVectorStore reports whether a usable vector store ID is configured.
func (c *Client) hasVectorStore() bool {
	return strings.HasPrefix(c.vectorStoreID, "vs_")
}

// Respond answers a chat query with web search enabled, plus document
// search when a vector store is configured.
func (c *Client) Respond(ctx context.Context, query string) (string, error) {
	tools := []tool{{Type: "web_search_preview", SearchContextSize: "medium"}}
	if c.hasVectorStore() {
		tools = append(tools, tool{
			Type:           "file_search",
			VectorStoreIDs: []string{c.vectorStoreID},
			MaxNumResults:  5,
		})
	}

	text, err := c.createResponse(ctx, responsesRequest{
		Model:        c.model,
		Tools:        tools,
		Instructions: instructions,
		Input:        query,
	})
	if err != nil {
		return "", fmt.Errorf("chat agent: %w", err)
	}
	if text == "" {
		return "I couldn't process your request at this time.", nil
	}
	return text, nil
}

// SearchNews runs a web search for financial news.
func (c *Client) SearchNews(ctx context.Context, query string) (string, error) {
	text, err := c.createResponse(ctx, responsesRequest{
		Model: c.model,
		Tools: []tool{{Type: "web_search_preview"}},
		Input: query,
	})
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	return text, nil
}

// SearchFiles queries the configured vector store for finance documents.
func (c *Client) SearchFiles(ctx context.Context, query string) (FileSearchResult, error) {
	result := FileSearchResult{Query: query, Source: "File search"}

	if !c.hasVectorStore() {
		result.Results = "Vector store not properly configured"
		return result, nil
	}

	text, err := c.createResponse(ctx, responsesRequest{
		Model: c.model,
		Tools: []tool{{
			Type:           "file_search",
			VectorStoreIDs: []string{c.vectorStoreID},
			MaxNumResults:  5,
		}},
		Input: "Search for information about: " + query,
	})
	if err != nil {
		return FileSearchResult{}, fmt.Errorf("file search: %w", err)
	}
	if text == "" {
		text = "No results found"
	}
	result.Results = text
	return result, nil
}

func (c *Client) createResponse(ctx context.Context, reqBody responsesRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call responses API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("responses API returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed responsesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return extractText(parsed), nil
}

// extractText prefers the aggregate output_text field, falling back to the
// first message content block.
func extractText(r responsesResponse) string {
	if r.OutputText != "" {
		return r.OutputText
	}
	for _, output := range r.Output {
		if output.Type != "message" {
			continue
		}
		for _, content := range output.Content {
			if content.Type == "output_text" {
				return content.Text
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
