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

// Layout names the project directories the validator checks.
type Layout struct {
	SrcDir  string
	GfxDir  string
	LangDir string
}

// Validate confirms the project structure. Missing source or graphics
// directories and missing fatal required fragments fail; a missing language
// directory or optional fragment only adds a warning to bag. It reports
// whether the language directory exists.
func Validate(layout Layout, rules Rules, logger *log.Logger, bag *diag.Bag) (hasLang bool, err error) {
	logger = logging.OrNop(logger)

	if err := requireDir(layout.SrcDir, "source"); err != nil {
		return false, err
	}
	if err := requireDir(layout.GfxDir, "graphics"); err != nil {
		return false, err
	}

	hasLang = true
	if ok, err := dirExists(layout.LangDir); err != nil {
		return false, err
	} else if !ok {
		msg := fmt.Sprintf("%q directory not found. Assuming hard-coded strings (this is not best practice)", layout.LangDir)
		logger.Warn(msg)
		bag.Add(diag.Warning(diag.MissingLangDirectory, layout.LangDir, msg))
		hasLang = false
	}

	for _, req := range rules.Required {
		p := filepath.Join(layout.SrcDir, req.Name)
		if _, err := os.Stat(p); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, diag.Wrap(diag.ReadFailed, p, err)
		}
		if req.Fatal {
			return false, &diag.Error{Code: diag.MissingRequiredFragment, Path: p, Message: req.Message}
		}
		logger.Warn(req.Message)
		bag.Add(diag.Warning(diag.MissingOptionalFragment, p, req.Message))
	}

	logger.Info("Project structure is correct")
	return hasLang, nil
}

func requireDir(dir, what string) error {
	ok, err := dirExists(dir)
	if err != nil {
		return err
	}
	if !ok {
		return diag.Errorf(diag.MissingDirectory, dir, "%s directory %q not found. Aborting", what, dir)
	}
	return nil
}

func dirExists(dir string) (bool, error) {
	if dir == "" {
		return false, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, diag.Wrap(diag.ReadFailed, dir, err)
	}
	return info.IsDir(), nil
}
