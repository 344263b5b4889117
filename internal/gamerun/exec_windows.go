//go:build windows

package gamerun

import (
	"os"
	"path/filepath"
	"strings"
)

func isExecutable(p string) bool {
	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(p), ".exe")
}
