package logctx

import (
	"sync"
	"time"
)

// Log Event Structure
type Event struct {
	Timestamp time.Time
	Severity  string
	Tags      []string
	Message   string
}

// Logger Struct
type Logger struct {
	ID         string
	CreatedAt  time.Time
	queue      []Event
	mutex      sync.Mutex // protects queue and PrintLevel
	cond       *sync.Cond // signals new events to the watcher
	Done       <-chan struct{}
	PrintLevel int             // Highest event level recorded (errors are always recorded)
	wg         *sync.WaitGroup // Holds main execution threads until log watchers are done handling events
}

// Suppression of highly repetitive messages
type dedupState struct {
	lastMsg          string
	repeatCount      int
	lastSuppressTime time.Time
}
