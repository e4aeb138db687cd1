package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileProvider hands out one opaque user token per installation. The
// token is minted on first use and persisted, so every later session
// resolves to the same player on the server.
type FileProvider struct {
	path string

	mu    sync.Mutex
	token string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Token returns the persisted token, creating it if absent.
func (p *FileProvider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" {
		return p.token, nil
	}

	data, err := os.ReadFile(p.path)
	if err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			p.token = token
			return p.token, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read identity: %w", err)
	}

	token := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return "", fmt.Errorf("identity dir: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write identity: %w", err)
	}
	p.token = token
	return p.token, nil
}
