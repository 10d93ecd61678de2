package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Local stores submission files on the local filesystem under a root
// directory. Keys become subdirectories, so files for one assignment and
// user stay together.
type Local struct {
	root   string
	logger zerolog.Logger
}

// NewLocal constructs a disk-backed store rooted at the given directory.
func NewLocal(root string, logger zerolog.Logger) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &Local{
		root:   root,
		logger: logger.With().Str("component", "filestore").Logger(),
	}, nil
}

// Save writes the file under root/key and returns the stored path.
func (l *Local) Save(ctx context.Context, key, fileName string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	path := filepath.Join(dir, uniqueName(fileName))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	l.logger.Debug().Str("path", path).Msg("file stored")

	return path, nil
}

// Remove deletes a previously stored file. Paths outside the root are
// rejected.
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cleaned := filepath.Clean(path)
	if !strings.HasPrefix(cleaned, filepath.Clean(l.root)+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the storage root", path)
	}

	if err := os.Remove(cleaned); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

// uniqueName prefixes the sanitized file name with a timestamp so repeated
// uploads of the same name never collide.
func uniqueName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)

	if strings.Trim(base, "-.") == "" {
		base = "upload"
	}

	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)
}
