package manager

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fsnotify/fsnotify"
)

// followPoll is the fallback wake-up when no write event arrives.
const followPoll = 500 * time.Millisecond

// FollowLog copies the job log into w and keeps copying appended bytes until
// the job is terminal or ctx ends. flush, when non-nil, is called after each
// chunk. Logs of jobs not tracked by this process are copied once.
func (t *JobTracker) FollowLog(ctx context.Context, id string, w io.Writer, flush func()) error {
	f, err := t.OpenLog(id)
	if err != nil {
		return err
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch log: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(f.Name()); err != nil {
		return fmt.Errorf("watch log: %w", err)
	}

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	drain := func() error {
		n, err := io.Copy(w, f)
		if n > 0 && flush != nil {
			flush()
		}
		return err
	}
	for {
		// Sample the status before draining so the final bytes written
		// ahead of the terminal transition are never missed.
		j, tracked := t.Get(id)
		if err := drain(); err != nil {
			return err
		}
		if !tracked || j.Terminal() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if ok && err != nil {
				t.log.Debug().Err(err).Str("job_id", id).Msg("log watcher")
			}
		case <-ticker.C:
		}
	}
}
