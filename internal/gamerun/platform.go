// Package gamerun installs a freshly compiled GRF into the game's newgrf
// directory and starts the game.
package gamerun

import (
	"path/filepath"

	"grfbuild/internal/diag"
)

// Platform holds the per-OS defaults used to locate and control the game.
type Platform struct {
	Name       string
	NewGRFDir  string
	Executable string
	// KillCmd terminates running game instances.
	KillCmd []string
}

// Defaults returns the platform defaults for goos with paths anchored at
// home. Only linux and windows are supported.
func Defaults(goos, home string) (Platform, error) {
	switch goos {
	case "linux":
		return Platform{
			Name:       "Linux",
			NewGRFDir:  filepath.Join(home, ".openttd", "newgrf"),
			Executable: "/usr/bin/openttd",
			KillCmd:    []string{"killall", "openttd"},
		}, nil
	case "windows":
		return Platform{
			Name:       "Windows",
			NewGRFDir:  filepath.Join(home, "Documents", "OpenTTD", "newgrf"),
			Executable: "C:/Program Files/OpenTTD/openttd.exe",
			KillCmd:    []string{"taskkill", "/IM", "OpenTTD.exe"},
		}, nil
	}
	return Platform{}, diag.Errorf(diag.UnsupportedPlatform, "", "cannot run the game on %s (supported: linux, windows)", goos)
}
