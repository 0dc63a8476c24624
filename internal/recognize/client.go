package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"kanjifinder/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-lite"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  os.Getenv("KANJIFINDER_AI_API_KEY"),
		Model:   os.Getenv("KANJIFINDER_AI_MODEL"),
		BaseURL: os.Getenv("KANJIFINDER_AI_BASE_URL"),
	}
}

// Client calls the image-recognition model. It is constructed per use; there
// is no package-level instance to configure.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTP == nil {
		cfg.HTTP = http.DefaultClient
	}
	return &Client{cfg: cfg}
}

const extractPrompt = `Analyze this image and identify Japanese Kanji characters visible.
Only include clearly visible Kanji characters that you can confidently identify.
Limit to at most 5 most clearly visible Kanji.

For each Kanji character, provide the character itself, its English meanings,
on'yomi readings in katakana, kun'yomi readings in hiragana, JLPT level (N5 to N1),
stroke count, and example words with readings and meanings.

Format the response as a JSON array of objects with keys:
kanji, meanings, onYomi, kunYomi, jlptLevel, strokeCount, examples (word/reading/meaning).
Ensure the response is valid JSON with no additional text before or after.`

// ExtractKanji sends the image to the model and returns the recognized kanji,
// normalized per the rules in pkg/models.KanjiResult.
func (c *Client) ExtractKanji(ctx context.Context, imageBase64 string) ([]models.KanjiResult, error) {
	data := stripDataURL(imageBase64)

	text, err := c.generate(ctx, []part{
		{Text: extractPrompt},
		{InlineData: &inlineData{MimeType: "image/jpeg", Data: data}},
	})
	if err != nil {
		return nil, err
	}

	var raw []rawKanji
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &raw); err != nil {
		// some models return a single object instead of an array
		var one rawKanji
		if err2 := json.Unmarshal([]byte(ExtractJSON(text)), &one); err2 != nil {
			return nil, fmt.Errorf("parse kanji data: %w", err)
		}
		raw = []rawKanji{one}
	}

	return normalizeAll(raw, imageRef(imageBase64)), nil
}

const detailsPromptFmt = `Provide detailed information about the Japanese Kanji: %s

Include all English meanings, on'yomi readings in katakana, kun'yomi readings in
hiragana, JLPT level (N5 to N1), stroke count, 3 example words with readings and
meanings, and a brief plain-text mnemonic with no markdown formatting.

Format the response as JSON with keys:
kanji, meanings, onYomi, kunYomi, jlptLevel, strokeCount, examples, mnemonic.`

// KanjiDetails looks up one kanji character.
func (c *Client) KanjiDetails(ctx context.Context, kanji string) (*models.KanjiResult, error) {
	text, err := c.generate(ctx, []part{{Text: fmt.Sprintf(detailsPromptFmt, kanji)}})
	if err != nil {
		return nil, err
	}

	var raw rawKanji
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("parse kanji data: %w", err)
	}

	result := normalize(raw, "")
	return &result, nil
}

const mnemonicPromptFmt = `Create a memorable mnemonic for the Japanese Kanji: %s

Consider its visual components, its meaning, and any helpful associations.
Provide just the mnemonic as a simple plain-text paragraph under 100 words,
with no markdown formatting or emphasis markers.`

// GenerateMnemonic returns a plain-text memory aid for one kanji.
func (c *Client) GenerateMnemonic(ctx context.Context, kanji string) (string, error) {
	text, err := c.generate(ctx, []part{{Text: fmt.Sprintf(mnemonicPromptFmt, kanji)}})
	if err != nil {
		return "", err
	}
	return CleanMnemonic(strings.TrimSpace(text)), nil
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"topP"`
		TopK        int     `json:"topK"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("recognition api key not configured")
	}

	var req generateRequest
	req.Contents = append(req.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: parts})
	req.GenerationConfig.Temperature = 0.2
	req.GenerationConfig.TopP = 0.9
	req.GenerationConfig.TopK = 250

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("recognition request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode recognition response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("recognition service: %s", out.Error.Message)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty recognition response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func stripDataURL(s string) string {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:image/") {
		return s[i+len(";base64,"):]
	}
	return s
}
