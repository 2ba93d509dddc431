package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"packetlog/internal/global"
	"packetlog/pkg/packet"
)

// Outcome of reading one session file
type ReplayResult struct {
	Path    string
	Header  SessionHeader
	Packets []packet.Packet
	Err     error // stream error after Packets, or open failure
}

// Reads the files concurrently (at most workers at a time). A broken file only affects its own
// result; the returned error is set only when ctx ends early.
// Results are ordered by file start time (files that failed to open first).
func ReplayAll(ctx context.Context, paths []string, registry *packet.Registry, policy packet.UnknownPolicy, workers int) (results []ReplayResult, err error) {
	results = make([]ReplayResult, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}
	for i, path := range paths {
		group.Go(func() (err error) {
			err = groupCtx.Err()
			if err != nil {
				return
			}
			result := &results[i]
			result.Path = path
			result.Header, result.Packets, result.Err = ReadSession(path, registry, policy)
			return
		})
	}
	err = group.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Header, results[j].Header
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.FileSequence < b.FileSequence
	})
	return
}

// Session files directly inside folder, sorted by name
func ListSessionFiles(folder string) (paths []string, err error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), global.SessionFileExt) {
			continue
		}
		paths = append(paths, filepath.Join(folder, entry.Name()))
	}
	sort.Strings(paths)
	return
}
