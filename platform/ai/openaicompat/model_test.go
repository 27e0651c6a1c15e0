package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestGenerateContentSendsSystemInstructionAndJSONMode(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	m := NewModel(Config{APIKey: "key", BaseURL: server.URL + "/", Model: "test-model", JSONMode: true})
	temp := float32(0.5)
	req := &model.LLMRequest{
		Contents: []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: "score this"}}}},
		Config: &genai.GenerateContentConfig{
			Temperature:       &temp,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: "you are a qualifier"}}},
		},
	}

	var text string
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		text = resp.Content.Parts[0].Text
	}

	if text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", text)
	}
	if captured.Model != "test-model" {
		t.Fatalf("expected model test-model, got %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "score this" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if captured.ResponseFormat["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", captured.ResponseFormat)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.5 {
		t.Fatalf("expected temperature 0.5, got %v", captured.Temperature)
	}
}

func TestGenerateContentReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	m := NewModel(Config{APIKey: "key", BaseURL: server.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		if err == nil {
			t.Fatal("expected error for 429 response")
		}
	}
}

func TestGenerateContentRequiresAPIKey(t *testing.T) {
	m := NewModel(Config{})
	if m.Name() != DefaultModel {
		t.Fatalf("expected default model, got %q", m.Name())
	}
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		if err == nil {
			t.Fatal("expected error without api key")
		}
	}
}
