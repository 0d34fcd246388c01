package operation

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"flowbridge-c2-agent/internal/model"
)

// BundleFile is one redacted file in a diagnostic bundle.
type BundleFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type DebugHandler struct {
	logger *slog.Logger
	bundle *BundleCollector
	safe   func(string) bool
}

func NewDebugHandler(bundle *BundleCollector, safe func(string) bool, logger *slog.Logger) *DebugHandler {
	return &DebugHandler{logger: logger, bundle: bundle, safe: safe}
}

func (h *DebugHandler) Name() string {
	return model.OperationDebug
}

// Handle assembles the bundle from the currently existing candidate
// files, dropping every line the sensitive-text filter rejects.
func (h *DebugHandler) Handle(ctx context.Context, op model.Operation) model.OperationAck {
	paths := h.bundle.Collect()
	if len(paths) == 0 {
		return model.OperationAck{
			OperationID: op.ID,
			State:       model.AckNoOperation,
			Details:     "no debug bundle files present",
		}
	}

	files := make([]BundleFile, 0, len(paths))
	for _, path := range paths {
		content, err := h.redactedContent(path)
		if err != nil {
			h.logger.Warn("debug bundle file skipped", "path", path, "error", err)
			continue
		}
		files = append(files, BundleFile{Name: filepath.Base(path), Content: content})
	}
	if len(files) == 0 {
		return model.OperationAck{
			OperationID: op.ID,
			State:       model.AckNotApplied,
			Details:     "no debug bundle files readable",
		}
	}
	return model.OperationAck{OperationID: op.ID, State: model.AckFullyApplied, Payload: files}
}

func (h *DebugHandler) redactedContent(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !h.safe(line) {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
