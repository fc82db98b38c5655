package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/errors"
)

// cardFileExt is the only extension ImportCards reads.
const cardFileExt = ".jsonl"

// ValidateImportPath decides whether path may be read as a card file.
//
// The file must sit directly in importsDir or in one of cfg.AllowedPaths. Nested
// directories are refused so no intermediate component can be swapped for a
// symlink between this check and the open; openFileNoFollowRead covers the final
// component. AllowUnsafePaths lifts the directory rule but never the symlink rule.
func ValidateImportPath(path, importsDir string, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if !strings.EqualFold(filepath.Ext(abs), cardFileExt) {
		return errors.NewInvalidRequest("path must have " + cardFileExt + " extension")
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkImportDir(filepath.Dir(abs), importsDir, cfg); err != nil {
			return err
		}
	}

	switch link, err := isSymlink(abs); {
	case os.IsNotExist(err):
		return errors.NewFileNotFound(path)
	case link:
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// checkImportDir requires dir to be one of the import directories and not a symlink.
func checkImportDir(dir, importsDir string, cfg *config.Config) error {
	dirs, err := importDirs(importsDir, cfg)
	if err != nil {
		return err
	}
	if !slices.Contains(dirs, filepath.Clean(dir)) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"card files must sit directly in an import directory (no subdirectories); allowed: %v", dirs))
	}
	if link, _ := isSymlink(dir); link {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// importDirs lists the directories card files may be read from, absolute and
// with symlinked entries resolved. Relative AllowedPaths entries are ignored.
func importDirs(importsDir string, cfg *config.Config) ([]string, error) {
	candidates := []string{importsDir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid import directory: %v", err))
		}
		if link, _ := isSymlink(abs); link {
			if abs, err = filepath.EvalSymlinks(abs); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve import directory %q: %v", d, err))
			}
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

func isSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// containsTraversal reports whether any component of path is "..". Both
// separators are checked on every platform.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
