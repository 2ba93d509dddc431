package logctx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"packetlog/internal/global"
)

const (
	dedupWindow      = 5 * time.Second
	minRepeats       = 10
	suppressCooldown = 1 * time.Minute
)

// Starts a go routine that reads events and writes formatted output to io.Writer.
// Stops when logger.Done is closed and the queue is drained.
func StartWatcher(logger *Logger, output io.Writer) {
	logger.watch(func(event Event) {
		fmt.Fprintf(output, "%s", event.Format())
	})
}

// Starts a go routine that writes events as JSON lines through zerolog.
// Stops when logger.Done is closed and the queue is drained.
func StartJSONWatcher(logger *Logger, output io.Writer) {
	zl := zerolog.New(output)
	logger.watch(func(event Event) {
		entry := zl.WithLevel(zerologLevel(event.Severity)).Time(zerolog.TimestampFieldName, event.Timestamp)
		if len(event.Tags) > 0 {
			entry = entry.Str("component", strings.Join(event.Tags, "/"))
		}
		entry.Msg(strings.TrimRight(event.Message, "\n"))
	})
}

func (logger *Logger) watch(emit func(Event)) {
	logger.wg.Add(1)

	go func() {
		defer logger.wg.Done()

		var dedup dedupState
		for {
			event, ok := logger.next()
			if !ok {
				return
			}

			summary, show := dedup.admit(event, time.Now())
			if summary != nil {
				emit(*summary)
			}
			if show {
				emit(event)
			}
		}
	}()
}

// Decides whether event is printed. Duplicates older than the window are not considered duplicates.
// Returns a summary event once enough repeats were swallowed (at most once per cooldown).
func (dedup *dedupState) admit(event Event, now time.Time) (summary *Event, show bool) {
	if event.Message == "" || event.Message != dedup.lastMsg || now.Sub(event.Timestamp) > dedupWindow {
		dedup.lastMsg = event.Message
		dedup.repeatCount = 1
		show = true
		return
	}

	dedup.repeatCount++
	if dedup.repeatCount >= minRepeats && now.Sub(dedup.lastSuppressTime) >= suppressCooldown {
		summary = &Event{
			Timestamp: event.Timestamp,
			Tags:      event.Tags,
			Severity:  global.InfoLog,
			Message:   fmt.Sprintf("Suppressed %d repeated messages: %s", dedup.repeatCount, strings.TrimRight(dedup.lastMsg, "\n")+"\n"),
		}
		dedup.lastSuppressTime = now
		dedup.repeatCount = 0
	}
	return
}

func zerologLevel(severity string) zerolog.Level {
	switch severity {
	case global.ErrorLog:
		return zerolog.ErrorLevel
	case global.WarnLog:
		return zerolog.WarnLevel
	case global.InfoLog:
		return zerolog.InfoLevel
	}
	return zerolog.NoLevel
}
