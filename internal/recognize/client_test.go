package recognize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeModelServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			t.Error("request missing api key")
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": reply}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractKanji(t *testing.T) {
	reply := "```json\n" + `[
		{"kanji":"海","meanings":["sea","ocean"],"onYomi":["カイ"],"kunYomi":["うみ"],"jlptLevel":"N5","strokeCount":9},
		{"kanji":"山"}
	]` + "\n```"
	srv := fakeModelServer(t, reply)
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, HTTP: srv.Client()})
	results, err := client.ExtractKanji(context.Background(), "data:image/jpeg;base64,AAAA")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Kanji != "海" || results[0].JLPTLevel != "N5" {
		t.Errorf("first result = %+v", results[0])
	}
	// sparse second entry gets defaults
	if results[1].JLPTLevel != "Unknown" || len(results[1].Meanings) != 1 {
		t.Errorf("second result not defaulted: %+v", results[1])
	}
	if results[0].ImageReference == "" {
		t.Error("image reference not recorded")
	}
}

func TestExtractKanjiSingleObject(t *testing.T) {
	srv := fakeModelServer(t, `{"kanji":"字","meanings":["character"]}`)
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, HTTP: srv.Client()})
	results, err := client.ExtractKanji(context.Background(), "AAAA")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(results) != 1 || results[0].Kanji != "字" {
		t.Errorf("results = %+v", results)
	}
}

func TestGenerateMnemonicCleansMarkdown(t *testing.T) {
	srv := fakeModelServer(t, "  **Three peaks** form a mountain.  ")
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, HTTP: srv.Client()})
	got, err := client.GenerateMnemonic(context.Background(), "山")
	if err != nil {
		t.Fatalf("mnemonic: %v", err)
	}
	if got != "Three peaks form a mountain." {
		t.Errorf("mnemonic = %q", got)
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.ExtractKanji(context.Background(), "AAAA"); err == nil {
		t.Fatal("expected error without api key")
	}
}
