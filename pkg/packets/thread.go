package packets

import (
	"github.com/google/uuid"

	"packetlog/pkg/codec"
	"packetlog/pkg/packet"
)

const ThreadInfoType = "ThreadInfo"

var threadInfoDefinition = packet.NewDefinition(ThreadInfoType, 1, true).
	AddField("ID", codec.FieldGUID).
	AddField("ThreadIndex", codec.FieldInt32).
	AddField("ThreadName", codec.FieldString).
	AddField("IsBackground", codec.FieldBool).
	AddSubPacket(packet.HeaderDefinition())

// Logical producer thread, written once per stream and referenced by log messages
type ThreadInfo struct {
	packet.Header
	ThreadID     uuid.UUID
	Index        int32
	Name         string
	IsBackground bool
}

func NewThreadInfo(index int32, name string) (info *ThreadInfo) {
	info = &ThreadInfo{
		ThreadID: uuid.New(),
		Index:    index,
		Name:     name,
	}
	return
}

func (info *ThreadInfo) Definition() *packet.Definition {
	return threadInfoDefinition
}

func (info *ThreadInfo) ID() uuid.UUID {
	return info.ThreadID
}

func (info *ThreadInfo) WriteFields(def *packet.Definition, bag *packet.SerializedPacket) (err error) {
	info.WriteHeader(bag)
	bag.SetGUID("ID", info.ThreadID)
	bag.SetInt32("ThreadIndex", info.Index)
	bag.SetString("ThreadName", info.Name)
	bag.SetBool("IsBackground", info.IsBackground)
	return
}

func (info *ThreadInfo) ReadFields(def *packet.Definition, bag *packet.SerializedPacket) (err error) {
	info.ReadHeader(bag)
	info.ThreadID = bag.GetGUID("ID")
	info.Index = bag.GetInt32("ThreadIndex")
	info.Name = bag.GetString("ThreadName")
	info.IsBackground = bag.GetBool("IsBackground")
	return
}
