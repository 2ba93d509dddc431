package packets

import (
	"fmt"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
	"packetlog/pkg/packet"
)

const (
	LogMessageType = "LogMessage"
	// Version 2 added Tags
	logMessageVersion = 2
)

var logMessageDefinition = packet.NewDefinition(LogMessageType, logMessageVersion, false).
	AddField("ID", codec.FieldGUID).
	AddField("Severity", codec.FieldInt32).
	AddField("LogSystem", codec.FieldString).
	AddField("Category", codec.FieldString).
	AddField("Caption", codec.FieldString).
	AddField("Description", codec.FieldString).
	AddField("Details", codec.FieldString).
	AddField("MethodName", codec.FieldString).
	AddField("FileName", codec.FieldString).
	AddField("LineNumber", codec.FieldInt32).
	AddField("ThreadID", codec.FieldGUID).
	AddField("Tags", codec.FieldStringArray).
	AddSubPacket(packet.HeaderDefinition())

// One log event. Requires the ThreadInfo of the thread that produced it.
type LogMessage struct {
	packet.Header
	MessageID   uuid.UUID
	Severity    Severity
	LogSystem   string
	Category    string
	Caption     string
	Description string
	Details     *string
	MethodName  string
	FileName    string
	LineNumber  int32
	Thread      *ThreadInfo
	Tags        []string

	threadID uuid.UUID
}

func NewLogMessage(thread *ThreadInfo, severity Severity, category string, caption string) (msg *LogMessage) {
	msg = &LogMessage{
		MessageID: uuid.New(),
		Severity:  severity,
		Category:  category,
		Caption:   caption,
		Thread:    thread,
	}
	return
}

func (msg *LogMessage) Definition() *packet.Definition {
	return logMessageDefinition
}

func (msg *LogMessage) RequiredPackets() []packet.Packet {
	if msg.Thread == nil {
		return nil
	}
	return []packet.Packet{msg.Thread}
}

// Thread identifier, valid after writing or reading
func (msg *LogMessage) ThreadID() uuid.UUID {
	if msg.Thread != nil {
		return msg.Thread.ThreadID
	}
	return msg.threadID
}

func (msg *LogMessage) WriteFields(def *packet.Definition, bag *packet.SerializedPacket) (err error) {
	if msg.Thread == nil {
		err = fmt.Errorf("log message %s has no thread", msg.MessageID)
		return
	}
	if !msg.Severity.Valid() {
		err = fmt.Errorf("log message %s has invalid %s", msg.MessageID, msg.Severity)
		return
	}

	msg.WriteHeader(bag)
	bag.SetGUID("ID", msg.MessageID)
	bag.SetInt32("Severity", int32(msg.Severity))
	bag.SetString("LogSystem", msg.LogSystem)
	bag.SetString("Category", msg.Category)
	bag.SetString("Caption", msg.Caption)
	bag.SetString("Description", msg.Description)
	bag.SetNullableString("Details", msg.Details)
	bag.SetString("MethodName", msg.MethodName)
	bag.SetString("FileName", msg.FileName)
	bag.SetInt32("LineNumber", msg.LineNumber)
	bag.SetGUID("ThreadID", msg.Thread.ThreadID)
	bag.SetStringArray("Tags", msg.Tags)
	return
}

func (msg *LogMessage) ReadFields(def *packet.Definition, bag *packet.SerializedPacket) (err error) {
	msg.ReadHeader(bag)
	msg.MessageID = bag.GetGUID("ID")
	msg.Severity = Severity(bag.GetInt32("Severity"))
	msg.LogSystem = bag.GetString("LogSystem")
	msg.Category = bag.GetString("Category")
	msg.Caption = bag.GetString("Caption")
	msg.Description = bag.GetString("Description")
	msg.Details = bag.GetNullableString("Details")
	msg.MethodName = bag.GetString("MethodName")
	msg.FileName = bag.GetString("FileName")
	msg.LineNumber = bag.GetInt32("LineNumber")
	msg.threadID = bag.GetGUID("ThreadID")
	if def.Version >= 2 {
		msg.Tags = bag.GetStringArray("Tags")
	}
	return
}

func (msg *LogMessage) ResolveReferences(lookup func(uuid.UUID) (packet.Packet, bool)) (err error) {
	pkt, ok := lookup(msg.threadID)
	if !ok {
		err = fmt.Errorf("thread %s of message %s not in stream", msg.threadID, msg.MessageID)
		return
	}
	thread, ok := pkt.(*ThreadInfo)
	if !ok {
		err = fmt.Errorf("packet %s referenced as thread is %T", msg.threadID, pkt)
		return
	}
	msg.Thread = thread
	return
}
