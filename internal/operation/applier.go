package operation

import (
	"log/slog"
	"os"
	"path/filepath"
)

// ConfigApplier persists remotely issued configuration payloads to the
// fixed target path. The write goes through a temporary file in the
// target directory followed by a rename, so concurrent readers of the
// target never observe a partial file.
type ConfigApplier struct {
	logger     *slog.Logger
	targetPath string
}

func NewConfigApplier(targetPath string, logger *slog.Logger) *ConfigApplier {
	return &ConfigApplier{logger: logger, targetPath: targetPath}
}

// Apply writes content to the target path, overwriting any existing
// file. Failures are logged with the target path and reported as false;
// no retry happens at this layer.
func (a *ConfigApplier) Apply(content []byte) bool {
	dir := filepath.Dir(a.targetPath)
	tmp, err := os.CreateTemp(dir, ".config-new-*")
	if err != nil {
		a.logger.Error("configuration update failed, temp file creation unsuccessful", "target", a.targetPath, "error", err)
		return false
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		a.logger.Error("configuration update failed, write unsuccessful", "target", a.targetPath, "error", err)
		return false
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		a.logger.Error("configuration update failed, close unsuccessful", "target", a.targetPath, "error", err)
		return false
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		a.logger.Error("configuration update failed, chmod unsuccessful", "target", a.targetPath, "error", err)
		return false
	}
	if err := os.Rename(tmpPath, a.targetPath); err != nil {
		_ = os.Remove(tmpPath)
		a.logger.Error("configuration update failed, rename unsuccessful", "target", a.targetPath, "error", err)
		return false
	}
	a.logger.Info("updated configuration written", "target", a.targetPath, "bytes", len(content))
	return true
}
