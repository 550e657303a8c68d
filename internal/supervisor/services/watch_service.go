// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package services

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/tomtom215/authpulse/internal/logging"
)

// fileState identifies one version of a file. The zero value means the
// file does not exist.
type fileState struct {
	modTime time.Time
	size    int64
}

// FileWatchService polls a set of files and calls OnChange when any of
// them appears, disappears or changes. The state at start is the baseline
// and does not trigger a call. A failing OnChange is retried on the next
// poll.
type FileWatchService struct {
	name     string
	paths    []string
	interval time.Duration
	onChange func(ctx context.Context, changed []string) error
	stat     func(string) (fs.FileInfo, error)
}

// NewFileWatchService creates a watcher. A non-positive interval uses 30s.
func NewFileWatchService(name string, paths []string, interval time.Duration, onChange func(ctx context.Context, changed []string) error) *FileWatchService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &FileWatchService{
		name:     name,
		paths:    append([]string(nil), paths...),
		interval: interval,
		onChange: onChange,
		stat:     os.Stat,
	}
}

// Serve implements suture.Service.
func (s *FileWatchService) Serve(ctx context.Context) error {
	logger := logging.WithComponent(s.name)
	known := s.snapshot()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current := s.snapshot()
		var changed []string
		for _, p := range s.paths {
			if current[p] != known[p] {
				changed = append(changed, p)
			}
		}
		if len(changed) == 0 {
			continue
		}

		logger.Info().Strs("paths", changed).Msg("Watched files changed")
		if err := s.onChange(ctx, changed); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Warn().Err(err).Strs("paths", changed).Msg("Reload failed, will retry on next poll")
			continue
		}
		known = current
	}
}

func (s *FileWatchService) snapshot() map[string]fileState {
	out := make(map[string]fileState, len(s.paths))
	for _, p := range s.paths {
		info, err := s.stat(p)
		if err != nil {
			out[p] = fileState{}
			continue
		}
		out[p] = fileState{modTime: info.ModTime(), size: info.Size()}
	}
	return out
}

// String implements fmt.Stringer for supervisor logs.
func (s *FileWatchService) String() string {
	return s.name
}
