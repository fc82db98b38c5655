//go:build !windows

package ops

import (
	stderrors "errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hpungsan/cram/internal/errors"
)

// openFileNoFollowRead opens a card file read-only, refusing a symlinked final
// component.
func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	switch {
	case err == nil:
		return os.NewFile(uintptr(fd), path), nil
	case stderrors.Is(err, unix.ELOOP):
		return nil, errors.NewInvalidRequest("card file must not be a symlink")
	case stderrors.Is(err, unix.ENOENT):
		return nil, errors.NewFileNotFound(path)
	default:
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
}
