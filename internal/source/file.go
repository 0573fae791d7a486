package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/config"
)

func init() {
	Register("file", newFileStore)
}

// fileStore serves objects from the local filesystem. The configured bucket
// is a directory and keys are paths beneath it. Used for local runs and
// fixtures; the error taxonomy matches the s3 backend.
type fileStore struct{}

func newFileStore(config.Source) (Store, error) { return fileStore{}, nil }

func (fileStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	path := filepath.Join(bucket, filepath.FromSlash(key))
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrAccessDenied)
		}
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	return b, nil
}
