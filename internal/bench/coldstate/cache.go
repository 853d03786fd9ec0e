package coldstate

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const DefaultDropCachesPath = "/proc/sys/vm/drop_caches"

// CacheDropper evicts the OS page cache.
type CacheDropper interface {
	Drop(ctx context.Context) error
}

// PageCacheDropper flushes dirty pages with sync(2) and then asks the kernel
// to free page cache, dentries and inodes.
type PageCacheDropper struct {
	Path string
}

func (d PageCacheDropper) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unix.Sync()

	path := d.Path
	if path == "" {
		path = DefaultDropCachesPath
	}
	if err := os.WriteFile(path, []byte("3\n"), 0o644); err != nil {
		return fmt.Errorf("drop caches via %s: %w", path, err)
	}
	return nil
}

type noopDropper struct{}

func (noopDropper) Drop(context.Context) error { return nil }
