package fs

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	logging "github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

const blocklistFileName = "blocked_tokens.json"

type blocklistData struct {
	Tokens []string `json:"tokens"`
}

// Blocklist is a file-backed set of token addresses that never produce alerts.
type Blocklist struct {
	mu   sync.Mutex
	path string
}

func NewBlocklist(dataDir string) *Blocklist {
	return &Blocklist{path: filepath.Join(dataDir, blocklistFileName)}
}

func (b *Blocklist) Path() string { return b.path }

// Load returns the blocked addresses. A missing file is an empty list.
func (b *Blocklist) Load() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *Blocklist) load() ([]string, error) {
	var data blocklistData
	ok, err := ReadJSON(b.path, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked tokens: %w", err)
	}
	if !ok {
		logging.LogDebug("Blocked tokens file is empty or missing", zap.String("file", b.path))
		return []string{}, nil
	}
	return data.Tokens, nil
}

// Set loads the list as a lookup map.
func (b *Blocklist) Set() (map[string]bool, error) {
	tokens, err := b.Load()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.TrimSpace(t)] = true
	}
	return set, nil
}

// Add appends address. It reports false when it was already blocked.
func (b *Blocklist) Add(address string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, fmt.Errorf("address cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tokens, err := b.load()
	if err != nil {
		return false, err
	}
	if slices.Contains(tokens, address) {
		return false, nil
	}
	tokens = append(tokens, address)
	if err := WriteJSONAtomic(b.path, blocklistData{Tokens: tokens}, 0o644); err != nil {
		return false, fmt.Errorf("failed to save blocked tokens: %w", err)
	}

	logging.LogInfo("Added token to blocklist", zap.String("address", address), zap.Int("totalCount", len(tokens)))
	return true, nil
}

// Remove deletes address. It reports false when it was not blocked.
func (b *Blocklist) Remove(address string) (bool, error) {
	address = strings.TrimSpace(address)

	b.mu.Lock()
	defer b.mu.Unlock()

	tokens, err := b.load()
	if err != nil {
		return false, err
	}
	idx := slices.Index(tokens, address)
	if idx < 0 {
		return false, nil
	}
	tokens = slices.Delete(tokens, idx, idx+1)
	if err := WriteJSONAtomic(b.path, blocklistData{Tokens: tokens}, 0o644); err != nil {
		return false, fmt.Errorf("failed to save blocked tokens: %w", err)
	}

	logging.LogInfo("Removed token from blocklist", zap.String("address", address), zap.Int("totalCount", len(tokens)))
	return true, nil
}
