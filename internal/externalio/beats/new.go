// Beats (lumberjack v2) network output
package beats

import (
	"fmt"
	"os"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"

	"packetlog/internal/global"
)

// Dials a beats server with the lumberjack v2 protocol
func Dial(address string, timeout time.Duration, compressionLevel int) (sender Sender, err error) {
	client, err := lumberjack.SyncDial(address,
		lumberjack.CompressionLevel(compressionLevel),
		lumberjack.Timeout(timeout))
	if err != nil {
		err = fmt.Errorf("failed connection to beats server: %w", err)
		return
	}
	sender = client
	return
}

// Creates new beats output module. dial nil uses Dial.
func NewOutput(namespace []string, opts Options, dial Dialer) (module *OutModule, err error) {
	if opts.Address == "" {
		err = fmt.Errorf("beats output requires an address")
		return
	}
	if opts.CompressionLevel < 0 || opts.CompressionLevel > 9 {
		err = fmt.Errorf("invalid compression level %d (0-9)", opts.CompressionLevel)
		return
	}
	if opts.Timeout <= 0 {
		opts.Timeout = global.DefaultBeatsTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = global.DefaultMaxBatchSize
	}
	if opts.Hostname == "" {
		opts.Hostname, _ = os.Hostname()
	}
	if dial == nil {
		dial = Dial
	}

	module = &OutModule{
		Namespace: append(append([]string(nil), namespace...), global.NSoBeats),
		opts:      opts,
		dial:      dial,
		pid:       os.Getpid(),
	}
	return
}
