package fragment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// OutputExt is the extension of the aggregated artifact.
const OutputExt = ".nml"

// OutputPath returns where Write puts the artifact for name.
func OutputPath(dir, name string) string {
	return filepath.Join(dir, name+OutputExt)
}

// Write persists buf as <dir>/<name>.nml, creating dir when missing. The file
// is replaced atomically so a failed write never leaves a partial artifact.
func Write(dir, name string, buf *Buffer, logger *log.Logger) (string, error) {
	logger = logging.OrNop(logger)
	if name == "" {
		return "", fmt.Errorf("missing output name")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", diag.Wrap(diag.WriteFailed, dir, err)
	}

	target := OutputPath(dir, name)
	if _, err := os.Stat(target); err == nil {
		logger.Infof("'%s%s' already exists. Overwriting", name, OutputExt)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", diag.Wrap(diag.WriteFailed, target, err)
	}

	f, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", diag.Wrap(diag.WriteFailed, dir, err)
	}
	tmp := f.Name()
	if _, err := buf.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", diag.Wrap(diag.WriteFailed, target, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", diag.Wrap(diag.WriteFailed, target, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", diag.Wrap(diag.WriteFailed, target, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", diag.Wrap(diag.WriteFailed, target, err)
	}

	logger.Infof("Written all files to '%s%s'", name, OutputExt)
	return target, nil
}
