package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"packetlog/pkg/packet"
)

// Opens a session file and reads its header
func OpenSession(path string, registry *packet.Registry, policy packet.UnknownPolicy) (session *SessionReader, err error) {
	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open session file: %w", err)
		return
	}

	buffered := bufio.NewReader(file)
	header, err := readHeader(buffered)
	if err != nil {
		_ = file.Close()
		err = fmt.Errorf("%s: %w", path, err)
		return
	}

	session = &SessionReader{
		Path:   path,
		Header: header,
		file:   file,
	}

	var body io.Reader = buffered
	if header.Compression == CompressionZstd {
		session.decompressor, err = zstd.NewReader(buffered, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = file.Close()
			session = nil
			err = fmt.Errorf("failed to create decompressor for %s: %w", path, err)
			return
		}
		body = session.decompressor
	}
	session.packets = packet.NewReader(body, registry, policy)
	return
}

// Returns the next packet, io.EOF at the end of the session file.
// Any other error is final: further calls return it again.
func (session *SessionReader) Next() (pkt packet.Packet, err error) {
	if session.err != nil {
		err = session.err
		return
	}

	pkt, err = session.packets.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("%s: packet %d: %w", session.Path, session.packets.Count()+1, err)
		}
		session.err = err
	}
	return
}

// Number of packets read so far
func (session *SessionReader) Count() int {
	return session.packets.Count()
}

// Byte offset within the (decompressed) packet stream
func (session *SessionReader) Offset() int64 {
	return session.packets.Offset()
}

func (session *SessionReader) Close() (err error) {
	if session.decompressor != nil {
		session.decompressor.Close()
	}
	err = session.file.Close()
	return
}

// Reads every packet of a session file. On a stream error the packets decoded before it are
// returned along with the error.
func ReadSession(path string, registry *packet.Registry, policy packet.UnknownPolicy) (header SessionHeader, pkts []packet.Packet, err error) {
	session, err := OpenSession(path, registry, policy)
	if err != nil {
		return
	}
	defer session.Close()
	header = session.Header

	for {
		var pkt packet.Packet
		pkt, err = session.Next()
		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}
		pkts = append(pkts, pkt)
	}
}
