package buildcache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"grfbuild/internal/project"
)

// Key combines the artifact digest with the digests of every file under
// langDir in path order. A missing langDir contributes nothing.
func Key(artifact project.Digest, langDir string) (project.Digest, error) {
	if langDir == "" {
		return project.Combine(artifact), nil
	}
	var paths []string
	err := filepath.WalkDir(langDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return project.Digest{}, err
	}
	sort.Strings(paths)
	deps := make([]project.Digest, 0, len(paths))
	for _, p := range paths {
		d, err := project.HashFile(p)
		if err != nil {
			return project.Digest{}, err
		}
		deps = append(deps, d)
	}
	return project.Combine(artifact, deps...), nil
}
