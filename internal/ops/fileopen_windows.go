//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/triage/internal/errors"
)

// openFileNoFollowRead opens a file for reading.
// O_NOFOLLOW is not available on Windows; ValidateImportPath still rejects symlinks.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("file", path)
		}
		return nil, err
	}
	return f, nil
}
