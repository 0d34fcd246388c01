// Package flowid tracks the identifier of the currently deployed flow
// configuration. The id is echoed in every heartbeat and updated when a
// remote configuration update is applied; it is persisted under the conf
// directory so it survives restarts.
package flowid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileName = "flow-identifier"

type Holder struct {
	path string

	mu sync.Mutex
	id string
}

func NewHolder(confDir string) *Holder {
	h := &Holder{path: filepath.Join(confDir, fileName)}
	if raw, err := os.ReadFile(h.path); err == nil {
		h.id = strings.TrimSpace(string(raw))
	}
	return h
}

func (h *Holder) Get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

func (h *Holder) Set(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create conf directory: %w", err)
	}
	if err := os.WriteFile(h.path, []byte(id), 0o644); err != nil {
		return fmt.Errorf("persist flow identifier to %s: %w", h.path, err)
	}
	h.id = id
	return nil
}
