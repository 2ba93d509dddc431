package packet

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
)

// How the reader treats packet types without a registered factory
type UnknownPolicy int

const (
	// Decode into GenericPacket, preserving values for re-emission
	UnknownAsGeneric UnknownPolicy = iota
	// Fail with *UnknownPacketTypeError
	UnknownIsFatal
)

// Decodes packets from one stream in the order they were written
type Reader struct {
	dec      *codec.Decoder
	registry *Registry
	policy   UnknownPolicy
	defs     []*Definition
	cache    map[uuid.UUID]Packet
	fatal    error // sticky once the stream can no longer be trusted
	count    int
}

func NewReader(src io.Reader, registry *Registry, policy UnknownPolicy) (r *Reader) {
	if registry == nil {
		registry = NewRegistry()
	}
	r = &Reader{
		dec:      codec.NewDecoder(src),
		registry: registry,
		policy:   policy,
		cache:    make(map[uuid.UUID]Packet),
	}
	return
}

// Number of packets successfully decoded
func (r *Reader) Count() int {
	return r.count
}

// Stream offset after the last decoded packet
func (r *Reader) Offset() int64 {
	return r.dec.Offset()
}

// Cached packet previously read from this stream
func (r *Reader) Lookup(id uuid.UUID) (pkt Packet, ok bool) {
	pkt, ok = r.cache[id]
	return
}

// Returns the next packet, or io.EOF at a clean end of stream.
// After a stream-fatal error every later call returns that error.
func (r *Reader) Read() (pkt Packet, err error) {
	if r.fatal != nil {
		err = r.fatal
		return
	}
	defer func() {
		if err != nil && err != io.EOF && IsStreamFatal(err) {
			r.fatal = err
		}
	}()

	end, err := r.dec.AtEnd()
	if err != nil {
		return
	}
	if end {
		err = io.EOF
		return
	}

	def, err := r.readTypeIndex()
	if err != nil {
		return
	}

	factory, known := r.registry.Lookup(def.TypeName)
	if !known && r.policy == UnknownIsFatal {
		err = &UnknownPacketTypeError{TypeName: def.TypeName}
		return
	}
	if known {
		pkt = factory()
		supported := pkt.Definition().Version
		if def.Version > supported {
			pkt = nil
			err = &UnsupportedVersionError{TypeName: def.TypeName, Version: def.Version, Supported: supported}
			return
		}
	}

	r.dec.BeginCapture()
	bag, err := r.readBody(def)
	raw := r.dec.EndCapture()
	if err != nil {
		pkt = nil
		return
	}

	if !known {
		pkt = &GenericPacket{def: def, bag: bag, Raw: raw}
	} else {
		err = pkt.ReadFields(def, bag)
		if err == nil {
			err = bag.Err()
		}
		if err != nil {
			pkt = nil
			err = fmt.Errorf("failed to load %s: %w", def.TypeName, err)
			return
		}
	}

	resolver, ok := pkt.(Resolver)
	if ok {
		err = resolver.ResolveReferences(r.Lookup)
		if err != nil {
			pkt = nil
			err = &codec.CorruptStreamError{Offset: r.dec.Offset(), Reason: fmt.Sprintf("%s: %v", def.TypeName, err)}
			return
		}
	}

	if def.Cached {
		cacheable, ok := pkt.(Cacheable)
		if ok {
			r.cache[cacheable.ID()] = pkt
		}
	}
	r.count++
	return
}

func (r *Reader) readTypeIndex() (def *Definition, err error) {
	idx, err := r.dec.ReadUvarint()
	if err != nil {
		return
	}
	switch {
	case idx < uint64(len(r.defs)):
		def = r.defs[idx]
	case idx == uint64(len(r.defs)):
		def, err = r.readDefinition(0)
		if err != nil {
			return
		}
		r.defs = append(r.defs, def)
	default:
		err = &codec.CorruptStreamError{
			Offset: r.dec.Offset(),
			Reason: fmt.Sprintf("packet type index %d beyond %d known definitions", idx, len(r.defs)),
		}
	}
	return
}

func (r *Reader) readDefinition(depth int) (def *Definition, err error) {
	if depth > maxDefinitionDepth {
		err = r.corrupt("sub packet nesting deeper than %d", maxDefinitionDepth)
		return
	}

	typeName, err := r.dec.ReadString()
	if err != nil {
		return
	}
	if typeName == "" {
		err = r.corrupt("definition without type name")
		return
	}
	version, err := r.dec.ReadUvarint()
	if err != nil {
		return
	}
	if version > 1<<31-1 {
		err = r.corrupt("definition %s has version %d", typeName, version)
		return
	}
	cached, err := r.dec.ReadBool()
	if err != nil {
		return
	}
	def = NewDefinition(typeName, int(version), cached)

	fieldCount, err := r.dec.ReadUvarint()
	if err != nil {
		return
	}
	if fieldCount > maxDefinitionFields {
		err = r.corrupt("definition %s declares %d fields", typeName, fieldCount)
		return
	}
	for range fieldCount {
		var name string
		name, err = r.dec.ReadString()
		if err != nil {
			return
		}
		var typ uint64
		typ, err = r.dec.ReadUvarint()
		if err != nil {
			return
		}
		if typ > 255 || !codec.FieldType(typ).Valid() {
			err = r.corrupt("field %s.%s has unknown type %d", typeName, name, typ)
			return
		}
		def.AddField(name, codec.FieldType(typ))
	}

	subCount, err := r.dec.ReadUvarint()
	if err != nil {
		return
	}
	if subCount > maxDefinitionSubs {
		err = r.corrupt("definition %s declares %d sub packets", typeName, subCount)
		return
	}
	for range subCount {
		var sub *Definition
		sub, err = r.readDefinition(depth + 1)
		if err != nil {
			return
		}
		def.AddSubPacket(sub)
	}
	return
}

func (r *Reader) readBody(def *Definition) (bag *SerializedPacket, err error) {
	bag = NewSerializedPacket(def)
	err = r.fillBody(bag)
	if err != nil {
		bag = nil
	}
	return
}

func (r *Reader) fillBody(bag *SerializedPacket) (err error) {
	for i, field := range bag.def.Fields {
		bag.values[i], err = r.dec.ReadValue(field.Type)
		if err != nil {
			return
		}
	}
	for _, sub := range bag.subs {
		err = r.fillBody(sub)
		if err != nil {
			return
		}
	}
	return
}

func (r *Reader) corrupt(format string, vars ...any) error {
	return &codec.CorruptStreamError{Offset: r.dec.Offset(), Reason: fmt.Sprintf(format, vars...)}
}
