package syncclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Session holds the backend credential as a token file on disk, the same
// shape the device keeps it in.
type Session struct {
	Path string
}

type tokenData struct {
	Token string `json:"token"`
}

func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.kanjifinder-token.json"
	}
	return filepath.Join(home, ".kanjifinder", "token.json")
}

func NewSession(path string) *Session {
	if path == "" {
		path = DefaultTokenPath()
	}
	return &Session{Path: path}
}

// Token returns the stored token, or "" when the session has never logged in.
func (s *Session) Token() (string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}

	var data tokenData
	if err := json.Unmarshal(b, &data); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return data.Token, nil
}

func (s *Session) SaveToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("ensure token dir: %w", err)
	}
	b, err := json.Marshal(tokenData{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, b, 0o600)
}

func (s *Session) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
