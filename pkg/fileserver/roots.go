package fileserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/store"
)

// EnsureRoots creates the content and public roots, and their parents, when
// they are missing from s. Fresh memory, badger and S3 stores start empty.
func EnsureRoots(ctx context.Context, s store.Store, r *Resolver) error {
	for _, root := range []string{r.ContentRoot(), r.PublicRoot()} {
		if err := mkdirAll(ctx, s, root); err != nil {
			return fmt.Errorf("failed to create root %q: %w", root, err)
		}
	}
	return nil
}

func mkdirAll(ctx context.Context, s store.Store, p string) error {
	segments := strings.Split(p, "/")
	for i := range segments {
		dir := strings.Join(segments[:i+1], "/")

		info, err := s.Stat(ctx, dir)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			return fmt.Errorf("%q: %w", dir, store.ErrNotDirectory)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := s.Mkdir(ctx, dir); err != nil && !errors.Is(err, store.ErrExists) {
			return err
		}
		logger.Debug("Created root directory %s", dir)
	}
	return nil
}
