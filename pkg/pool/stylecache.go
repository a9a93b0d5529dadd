package pool

import (
	"context"
	"os"
	"time"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/observability"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

// styleCache tracks the style last loaded into a backend so repeated
// requests for the same path skip the reload. An instance belongs to
// exactly one backend owner (a pool goroutine or a worker process) and is
// deliberately unsynchronized.
type styleCache struct {
	lastLoaded string
}

// ensure makes sure backend has the style at path installed.
//
// The cached path is updated only after a successful load. A failed load
// leaves it untouched, so the next request retries the load instead of
// treating the broken style as current. The cache compares paths, not
// file contents; a style edited in place behind an unchanged path is not
// picked up.
func (c *styleCache) ensure(backend renderer.Backend, path string) error {
	if path != "" && path == c.lastLoaded {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return errors.New(errors.ErrCodeNotFound, "Path %s is not a file", path)
	}

	start := time.Now()
	err = backend.LoadStyle(path)
	observability.Render().OnStyleLoad(context.Background(), path, time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBackend, err, "load style %s", path)
	}

	c.lastLoaded = path
	return nil
}
