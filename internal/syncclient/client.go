package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kanjifinder/internal/localstore"
	"kanjifinder/pkg/models"
)

// ErrNotAuthenticated is returned before any network I/O when the session
// holds no credential.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client pushes locally-pending flashcards to the backend. It is constructed
// explicitly; there is no package-level instance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *Session
	Store   *localstore.Store
}

func New(baseURL string, httpClient *http.Client, session *Session, store *localstore.Store) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Session: session,
		Store:   store,
	}
}

// Result reports one sync pass.
type Result struct {
	Synced  int    `json:"synced"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type bulkResponse struct {
	Message    string             `json:"message"`
	Flashcards []models.Flashcard `json:"flashcards"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorBody) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Sync pushes every unsynced card in one bulk request and marks the subset
// the backend accepted. Cards the backend rejected stay local for the next
// pass. No retries; a failed pass is reported to the caller as-is.
func (c *Client) Sync(ctx context.Context) (Result, error) {
	token, err := c.Session.Token()
	if err != nil {
		return Result{}, err
	}
	if token == "" {
		return Result{}, ErrNotAuthenticated
	}

	unsynced, err := c.Store.ListUnsynced()
	if err != nil {
		return Result{}, err
	}
	if len(unsynced) == 0 {
		return Result{Synced: 0, Total: 0, Message: "no flashcards to sync"}, nil
	}

	status, body, err := c.doJSON(ctx, http.MethodPost, "/flashcards/bulk", token, unsynced)
	if err != nil {
		return Result{}, err
	}

	// 207 is partial success: the response lists only the cards that landed.
	if status != http.StatusCreated && status != http.StatusMultiStatus {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		if msg := eb.text(); msg != "" {
			return Result{}, fmt.Errorf("sync failed: %s", msg)
		}
		return Result{}, fmt.Errorf("sync failed: status %d", status)
	}

	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("decode sync response: %w", err)
	}

	ids := make([]string, 0, len(resp.Flashcards))
	for _, card := range resp.Flashcards {
		ids = append(ids, card.ID)
	}
	if _, err := c.Store.MarkSynced(ids); err != nil {
		return Result{}, err
	}

	return Result{
		Synced:  len(ids),
		Total:   len(unsynced),
		Message: fmt.Sprintf("synced %d of %d flashcards", len(ids), len(unsynced)),
	}, nil
}

// Upload pushes a single card directly, outside the bulk sync path.
func (c *Client) Upload(ctx context.Context, card models.Flashcard) (*models.Flashcard, error) {
	token, err := c.Session.Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	status, body, err := c.doJSON(ctx, http.MethodPost, "/flashcards", token, card)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		if msg := eb.text(); msg != "" {
			return nil, fmt.Errorf("upload failed: %s", msg)
		}
		return nil, fmt.Errorf("upload failed: status %d", status)
	}

	var saved models.Flashcard
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &saved, nil
}

type authResponse struct {
	Token string `json:"token"`
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	status, body, err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		if msg := eb.text(); msg != "" {
			return fmt.Errorf("login failed: %s", msg)
		}
		return fmt.Errorf("login failed: status %d", status)
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	return c.Session.SaveToken(resp.Token)
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	payload := map[string]string{"username": username, "email": email, "password": password}
	status, body, err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", payload)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		if msg := eb.text(); msg != "" {
			return fmt.Errorf("register failed: %s", msg)
		}
		return fmt.Errorf("register failed: status %d", status)
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode register response: %w", err)
	}
	return c.Session.SaveToken(resp.Token)
}

// Logout drops the local credential. The token itself stays valid server-side
// until it expires or the user changes their password.
func (c *Client) Logout() error {
	return c.Session.Clear()
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}
