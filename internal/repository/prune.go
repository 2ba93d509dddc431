package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
)

type Policy struct {
	MaxAge       time.Duration // 0 keeps files of any age
	MaxDiskUsage int64         // bytes, 0 is unlimited
	Extensions   []string      // file extensions subject to pruning, default session files only
	Keep         []string      // paths never removed (files currently being written)
}

type Result struct {
	Removed    []string
	FreedBytes int64
	Remaining  int64 // bytes of matching files left
}

type candidate struct {
	path    string
	size    int64
	modTime time.Time
}

// Removes files older than MaxAge, then the oldest files until MaxDiskUsage holds.
// Runs under the repository lock; returns ErrLocked when another process holds it.
func Prune(ctx context.Context, folder string, policy Policy, now time.Time) (result Result, err error) {
	ctx = logctx.AppendCtxTag(ctx, global.NSRepo)

	lock, err := Acquire(folder)
	if err != nil {
		return
	}
	defer func() {
		releaseErr := lock.Release()
		if err == nil {
			err = releaseErr
		}
	}()

	files, err := listCandidates(folder, policy)
	if err != nil {
		return
	}

	// Oldest first
	slices.SortFunc(files, func(a, b candidate) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})

	for _, file := range files {
		result.Remaining += file.size
	}

	for _, file := range files {
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}

		expired := policy.MaxAge > 0 && now.Sub(file.modTime) > policy.MaxAge
		overQuota := policy.MaxDiskUsage > 0 && result.Remaining > policy.MaxDiskUsage
		if !expired && !overQuota {
			continue
		}

		removeErr := os.Remove(file.path)
		if removeErr != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to remove '%s': %v\n", file.path, removeErr)
			continue
		}
		result.Removed = append(result.Removed, file.path)
		result.FreedBytes += file.size
		result.Remaining -= file.size
		logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog, "Removed '%s' (%d bytes)\n", file.path, file.size)
	}

	if len(result.Removed) > 0 {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"Pruned %d files (%d bytes) from %s\n", len(result.Removed), result.FreedBytes, folder)
	}
	return
}

func listCandidates(folder string, policy Policy) (files []candidate, err error) {
	extensions := policy.Extensions
	if len(extensions) == 0 {
		extensions = []string{global.SessionFileExt}
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		err = fmt.Errorf("failed to list repository folder: %w", err)
		return
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !slices.Contains(extensions, filepath.Ext(entry.Name())) {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if slices.Contains(policy.Keep, path) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			// Removed since listing
			continue
		}
		files = append(files, candidate{path: path, size: info.Size(), modTime: info.ModTime()})
	}
	return
}
