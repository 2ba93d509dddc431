package packets

import (
	"packetlog/pkg/codec"
	"packetlog/pkg/packet"
)

const SessionCloseType = "SessionClose"

type SessionStatus int32

const (
	SessionRunning SessionStatus = iota
	SessionNormal
	SessionCrashed
)

func (status SessionStatus) String() string {
	switch status {
	case SessionRunning:
		return "running"
	case SessionNormal:
		return "normal"
	case SessionCrashed:
		return "crashed"
	}
	return "unknown"
}

var sessionCloseDefinition = packet.NewDefinition(SessionCloseType, 1, false).
	AddField("Status", codec.FieldInt32).
	AddField("Reason", codec.FieldString).
	AddField("PacketCount", codec.FieldInt64).
	AddSubPacket(packet.HeaderDefinition())

// Last packet of an orderly session
type SessionClose struct {
	packet.Header
	Status      SessionStatus
	Reason      string
	PacketCount int64 // packets submitted during the session, excluding this one
}

func (closing *SessionClose) Definition() *packet.Definition {
	return sessionCloseDefinition
}

func (closing *SessionClose) WriteFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	closing.WriteHeader(bag)
	bag.SetInt32("Status", int32(closing.Status))
	bag.SetString("Reason", closing.Reason)
	bag.SetInt64("PacketCount", closing.PacketCount)
	return
}

func (closing *SessionClose) ReadFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	closing.ReadHeader(bag)
	closing.Status = SessionStatus(bag.GetInt32("Status"))
	closing.Reason = bag.GetString("Reason")
	closing.PacketCount = bag.GetInt64("PacketCount")
	return
}
