// Package tailer follows a growing access log and streams its lines.
package tailer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hpcloud/tail"
)

// Options controls where tailing starts.
type Options struct {
	// FromEnd skips the existing content and only streams new lines.
	FromEnd bool
	// Offset starts reading at this byte offset. Ignored when FromEnd is set.
	Offset int64
	// Poll uses polling instead of inotify, for filesystems without notifications.
	Poll bool
}

// TailLines follows path and sends each line to the returned channel until ctx is done.
// The file must exist when TailLines is called; rotation is followed afterwards.
func TailLines(ctx context.Context, path string, opts Options) (<-chan string, error) {
	config := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      opts.Poll,
		Logger:    tail.DiscardingLogger,
	}
	switch {
	case opts.FromEnd:
		config.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	case opts.Offset > 0:
		config.Location = &tail.SeekInfo{Offset: opts.Offset, Whence: io.SeekStart}
	}
	t, err := tail.TailFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer t.Cleanup()
		for {
			select {
			case <-ctx.Done():
				_ = t.Stop()
				return
			case line, ok := <-t.Lines:
				if !ok {
					return
				}
				if line.Err != nil {
					continue
				}
				select {
				case out <- strings.TrimSuffix(line.Text, "\r"):
				case <-ctx.Done():
					_ = t.Stop()
					return
				}
			}
		}
	}()
	return out, nil
}
