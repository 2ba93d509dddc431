// Session files: a CBOR header followed by a packet stream, optionally zstd compressed
package file

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"packetlog/internal/global"
)

// Creates new session file output module. Nothing is opened until the messenger starts it.
func NewOutput(namespace []string, opts Options) (module *OutModule, err error) {
	if opts.Folder == "" {
		err = fmt.Errorf("session output requires a folder")
		return
	}
	if opts.Product == "" {
		opts.Product = global.DefaultProduct
	}
	if opts.Application == "" {
		opts.Application = global.DefaultApplication
	}
	if opts.SessionID == uuid.Nil {
		opts.SessionID = uuid.New()
	}
	if opts.Hostname == "" {
		opts.Hostname, _ = os.Hostname()
	}
	if opts.PID == 0 {
		opts.PID = os.Getpid()
	}

	module = &OutModule{
		Namespace: append(append([]string(nil), namespace...), global.NSoFile),
		opts:      opts,
		Metrics:   &MetricStorage{},
	}
	return
}

// Session all files of this module belong to
func (mod *OutModule) SessionID() uuid.UUID {
	return mod.opts.SessionID
}

// Path of the file currently written
func (mod *OutModule) CurrentPath() (path string) {
	current := mod.path.Load()
	if current != nil {
		path = *current
	}
	return
}
