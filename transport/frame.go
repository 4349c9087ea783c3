package transport

import (
	"bytes"
	"fmt"
	"strconv"
)

// binaryTag marks a frame whose payload is raw bytes rather than text.
var binaryTag = []byte("BIN|")

// Frame is one sequence-numbered unit of the datagram protocol. Text frames
// go on the wire as "<seq>|<payload>", binary frames as "<seq>|BIN|" followed
// by the raw bytes. Acknowledgments carry the bare decimal sequence number.
type Frame struct {
	Seq     int
	Binary  bool
	Payload []byte
}

// Encode renders the frame in wire format.
func (f Frame) Encode() []byte {
	var header string
	if f.Binary {
		header = fmt.Sprintf("%d|BIN|", f.Seq)
	} else {
		header = fmt.Sprintf("%d|", f.Seq)
	}
	packet := make([]byte, 0, len(header)+len(f.Payload))
	packet = append(packet, header...)
	return append(packet, f.Payload...)
}

// EncodeAck renders the acknowledgment for seq.
func EncodeAck(seq int) []byte {
	return []byte(strconv.Itoa(seq))
}

type datagramKind int

const (
	// datagramAck is a bare decimal number. Whether it really acknowledges
	// anything depends on the sender's in-flight table; an ack that matches
	// nothing is handed on as legacy raw text.
	datagramAck datagramKind = iota
	datagramFrame
	datagramRaw
)

// decodeDatagram classifies a received datagram. For datagramFrame the
// returned Frame is populated; for datagramAck the returned seq is.
func decodeDatagram(data []byte) (datagramKind, Frame, int) {
	idx := bytes.IndexByte(data, '|')
	if idx < 0 {
		if seq, err := strconv.Atoi(string(data)); err == nil {
			return datagramAck, Frame{}, seq
		}
		return datagramRaw, Frame{}, 0
	}
	seq, err := strconv.Atoi(string(data[:idx]))
	if err != nil {
		// Delimiter present but no leading number: legacy plain text.
		return datagramRaw, Frame{}, 0
	}
	rest := data[idx+1:]
	if bytes.HasPrefix(rest, binaryTag) {
		return datagramFrame, Frame{Seq: seq, Binary: true, Payload: rest[len(binaryTag):]}, 0
	}
	return datagramFrame, Frame{Seq: seq, Payload: rest}, 0
}
