//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/cram/internal/errors"
)

// openFileNoFollowRead opens a card file read-only. Windows has no O_NOFOLLOW;
// ValidateImportPath has already refused symlinks.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
