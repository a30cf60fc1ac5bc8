package download

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/doccrawl/internal/model"
)

// writeFile streams r into dir/name and returns the size and SHA3-256 digest
// of what was written.
//
// The bytes go to a temporary file in dir which is synced, closed and renamed
// over the destination only after the stream ended cleanly. On any error the
// temporary file is removed and an existing destination is left untouched.
func writeFile(dir, name string, r io.Reader) (digest model.Digest, err error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return model.Digest{}, fmt.Errorf("%w: create directory: %w", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return model.Digest{}, fmt.Errorf("%w: create temp file: %w", ErrStorage, err)
	}
	tmpPath := tmp.Name()

	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha3.New256()
	n, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		// Reading the body failed, which is a network problem.
		return model.Digest{}, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if err = tmp.Sync(); err != nil {
		return model.Digest{}, fmt.Errorf("%w: sync: %w", ErrStorage, err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return model.Digest{}, fmt.Errorf("%w: close: %w", ErrStorage, err)
	}

	if err = os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return model.Digest{}, fmt.Errorf("%w: rename: %w", ErrStorage, err)
	}

	return model.Digest{
		SizeBytes: n,
		SHA3:      hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
