package packet

import (
	"errors"
	"fmt"
	"strings"

	"packetlog/pkg/codec"
)

// Stream carries a packet version newer than the registered packet type understands
type UnsupportedVersionError struct {
	TypeName  string
	Version   int
	Supported int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("packet %s version %d is newer than supported version %d", e.TypeName, e.Version, e.Supported)
}

// Stream carries a packet type without a registered factory while reading strictly
type UnknownPacketTypeError struct {
	TypeName string
}

func (e *UnknownPacketTypeError) Error() string {
	return fmt.Sprintf("no factory registered for packet type %s", e.TypeName)
}

// Raised by panic when a packet requires itself, directly or transitively.
// Path lists the type names from the outermost packet to the repeated one.
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return "packet dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Reports whether err ends reading of the stream it came from
func IsStreamFatal(err error) (fatal bool) {
	if codec.IsStreamFatal(err) {
		fatal = true
		return
	}
	var version *UnsupportedVersionError
	var unknown *UnknownPacketTypeError
	fatal = errors.As(err, &version) || errors.As(err, &unknown)
	return
}
