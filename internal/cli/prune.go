package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"packetlog/internal/global"
	"packetlog/internal/repository"
)

// One-off repository cleanup, same rules as the agent's periodic pruning
func PruneMode(ctx context.Context, commandname string, args []string) {
	var folder string
	var maxAgeDays int
	var maxUsageMB int
	var extensions string

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	commandFlags.StringVar(&folder, "f", global.DefaultRepositoryFolder, "Session file folder")
	commandFlags.StringVar(&folder, "folder", global.DefaultRepositoryFolder, "Session file folder")
	commandFlags.IntVar(&maxAgeDays, "max-age-days", global.DefaultMaxAgeDays, "Remove files older than this many days (0 keeps any age)")
	commandFlags.IntVar(&maxUsageMB, "max-usage-mb", global.DefaultMaxDiskUsageMB, "Remove oldest files until the folder uses at most this much (0 is unlimited)")
	commandFlags.StringVar(&extensions, "ext", global.SessionFileExt, "Comma separated file extensions to prune")
	parseArgs(commandFlags, commandname, args, false)

	policy := repository.Policy{
		MaxAge:       time.Duration(maxAgeDays) * 24 * time.Hour,
		MaxDiskUsage: int64(maxUsageMB) << 20,
		Extensions:   strings.Split(extensions, ","),
	}
	result, err := repository.Prune(ctx, folder, policy, time.Now())
	exitOnError(err, "failed to prune %s", folder)

	for _, path := range result.Removed {
		fmt.Println("removed", path)
	}
	fmt.Printf("%d files removed, %d bytes freed, %d bytes remaining\n", len(result.Removed), result.FreedBytes, result.Remaining)
}
