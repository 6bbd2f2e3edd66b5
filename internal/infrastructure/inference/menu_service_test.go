package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/utils/platformerrors"
)

func chatCompletionResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	}
}

func newMenuTestService(t *testing.T, handler http.HandlerFunc) (*MenuService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		MenuProviderBaseURL: server.URL + "/v1",
		MenuProviderAPIKey:  "test-key",
		MenuModel:           "test-model",
	}
	return NewMenuService(cfg, zerolog.Nop()), server
}

func TestParseExtractsDishRecords(t *testing.T) {
	payload := `{"dishes":[
		{"original_name":"牛肉面","english_translation":"Beef Noodle Soup","ingredients_or_description":"wheat noodles, braised beef","price":"¥28"},
		{"original_name":"宫保鸡丁","english_translation":"Kung Pao Chicken","ingredients_or_description":"chicken, peanuts, dried chili"}
	]}`

	var gotPath string
	svc, _ := newMenuTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(chatCompletionResponse(payload))
	})

	records, err := svc.Parse(context.Background(), []byte("\x89PNG\r\n\x1a\nimage-bytes"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q, want /v1/chat/completions", gotPath)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].OriginalName != "牛肉面" || records[0].EnglishTranslation != "Beef Noodle Soup" {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Price != "" {
		t.Errorf("records[1].Price = %q, want empty", records[1].Price)
	}
}

func TestParseAcceptsFencedJSON(t *testing.T) {
	payload := "```json\n{\"dishes\":[{\"original_name\":\"味噌汁\",\"english_translation\":\"Miso Soup\",\"ingredients_or_description\":\"miso, tofu, wakame\"}]}\n```"

	svc, _ := newMenuTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse(payload))
	})

	records, err := svc.Parse(context.Background(), []byte("\x89PNG\r\n\x1a\nimage-bytes"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 || records[0].EnglishTranslation != "Miso Soup" {
		t.Fatalf("records = %+v", records)
	}
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing english translation",
			content: `{"dishes":[{"original_name":"牛肉面","ingredients_or_description":"noodles"}]}`,
		},
		{
			name:    "missing original name",
			content: `{"dishes":[{"english_translation":"Beef Noodle Soup","ingredients_or_description":"noodles"}]}`,
		},
		{
			name:    "missing description",
			content: `{"dishes":[{"original_name":"牛肉面","english_translation":"Beef Noodle Soup"}]}`,
		},
		{
			name:    "not JSON at all",
			content: "Here are the dishes I found on the menu.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newMenuTestService(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(chatCompletionResponse(tt.content))
			})

			_, err := svc.Parse(context.Background(), []byte("\x89PNG\r\n\x1a\nimage-bytes"))
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeAnalysis) {
				t.Fatalf("err = %v, want ANALYSIS_FAILED", err)
			}
		})
	}
}

func TestParseProviderErrorIsAnalysisError(t *testing.T) {
	svc, _ := newMenuTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})

	_, err := svc.Parse(context.Background(), []byte("\x89PNG\r\n\x1a\nimage-bytes"))
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeAnalysis) {
		t.Fatalf("err = %v, want ANALYSIS_FAILED", err)
	}
}

func TestParseEmptyCompletionIsAnalysisError(t *testing.T) {
	svc, _ := newMenuTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse(""))
	})

	_, err := svc.Parse(context.Background(), []byte("\x89PNG\r\n\x1a\nimage-bytes"))
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeAnalysis) {
		t.Fatalf("err = %v, want ANALYSIS_FAILED", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"dishes":[]}`, want: `{"dishes":[]}`},
		{name: "json fence", in: "```json\n{\"dishes\":[]}\n```", want: `{"dishes":[]}`},
		{name: "bare fence", in: "```\n{\"dishes\":[]}\n```", want: `{"dishes":[]}`},
		{name: "surrounding whitespace", in: "  {\"dishes\":[]}\n", want: `{"dishes":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
