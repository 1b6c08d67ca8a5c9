package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Frame layout: 4-byte magic, 4-byte big-endian kind, 4-byte big-endian
// payload length, then exactly that many payload bytes.
const (
	frameHeaderLen = 12

	magicRequest  uint32 = 0x00524551 // "\x00REQ"
	magicResponse uint32 = 0x00524553 // "\x00RES"
)

// RequestKind identifies an outbound message variant. Values match the
// dispatch protocol's wire kind codes exactly.
type RequestKind uint32

const (
	ReqSetClientID  RequestKind = 22
	ReqCanDo        RequestKind = 1
	ReqCantDo       RequestKind = 2
	ReqPreSleep     RequestKind = 4
	ReqGrabJobUniq  RequestKind = 30
	ReqWorkStatus   RequestKind = 12
	ReqWorkComplete RequestKind = 13
	ReqWorkFail     RequestKind = 14
	ReqWorkException RequestKind = 25
	ReqWorkData     RequestKind = 28
)

// ResponseKind identifies an inbound message variant the worker
// recognizes. ResIgnore marks any other kind code the protocol defines
// but this worker doesn't act on.
type ResponseKind uint32

const (
	ResNoop          ResponseKind = 6
	ResNoJob         ResponseKind = 10
	ResJobAssignUniq ResponseKind = 31
	ResIgnore        ResponseKind = 0
)

// Request is the tagged union of outbound messages the worker can send.
// Only the fields relevant to Kind are populated; see the New* constructors.
type Request struct {
	Kind        RequestKind
	ID          []byte // SetClientId
	Name        string // CanDo, CantDo
	Handle      string // WorkStatus, WorkComplete, WorkFail, WorkException, WorkData
	Numerator   string // WorkStatus
	Denominator string // WorkStatus
	Data        []byte // WorkComplete, WorkException, WorkData
}

func NewSetClientID(id []byte) Request { return Request{Kind: ReqSetClientID, ID: id} }
func NewCanDo(name string) Request     { return Request{Kind: ReqCanDo, Name: name} }
func NewCantDo(name string) Request    { return Request{Kind: ReqCantDo, Name: name} }
func NewPreSleep() Request             { return Request{Kind: ReqPreSleep} }
func NewGrabJobUniq() Request          { return Request{Kind: ReqGrabJobUniq} }

func NewWorkStatus(handle, numerator, denominator string) Request {
	return Request{Kind: ReqWorkStatus, Handle: handle, Numerator: numerator, Denominator: denominator}
}

func NewWorkComplete(handle string, data []byte) Request {
	return Request{Kind: ReqWorkComplete, Handle: handle, Data: data}
}

func NewWorkException(handle string, data []byte) Request {
	return Request{Kind: ReqWorkException, Handle: handle, Data: data}
}

func NewWorkData(handle string, data []byte) Request {
	return Request{Kind: ReqWorkData, Handle: handle, Data: data}
}

func NewWorkFail(handle string) Request {
	return Request{Kind: ReqWorkFail, Handle: handle}
}

// Response is the tagged union of inbound messages. RawKind carries the
// on-wire kind code when Kind == ResIgnore, so callers can still log it.
type Response struct {
	Kind     ResponseKind
	RawKind  uint32
	Handle   string
	Name     string
	Unique   string
	Workload []byte
}

// Packet is the result of decoding one frame: exactly one of Request or
// Response is set, depending on the frame's magic.
type Packet struct {
	Request  *Request
	Response *Response
}

// MalformedFrameError reports a frame that failed to parse, along with how
// many bytes of the buffer were implicated (for logging / discard).
type MalformedFrameError struct {
	Bytes int
	Err   error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame (%d bytes): %v", e.Bytes, e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

// ErrIncomplete is returned by Decode when the buffer does not yet hold a
// full frame. It is not an error condition; the caller should buffer more
// bytes and retry.
var ErrIncomplete = fmt.Errorf("incomplete frame")

// Decode parses one frame from the front of buf. On success it returns the
// parsed Packet and the number of bytes consumed; buf[consumed:] is the
// unconsumed tail. If buf doesn't yet hold a full frame, it returns
// ErrIncomplete. Any other malformation returns a *MalformedFrameError.
func Decode(buf []byte) (pkt Packet, consumed int, err error) {
	if len(buf) < frameHeaderLen {
		return Packet{}, 0, ErrIncomplete
	}

	magic := binary.BigEndian.Uint32(buf[0:4])
	kind := binary.BigEndian.Uint32(buf[4:8])
	length := binary.BigEndian.Uint32(buf[8:12])

	total := frameHeaderLen + int(length)
	if len(buf) < total {
		return Packet{}, 0, ErrIncomplete
	}
	payload := buf[frameHeaderLen:total]

	switch magic {
	case magicRequest:
		req, derr := decodeRequest(kind, payload)
		if derr != nil {
			return Packet{}, 0, &MalformedFrameError{Bytes: total, Err: derr}
		}
		return Packet{Request: &req}, total, nil
	case magicResponse:
		resp := decodeResponse(kind, payload)
		return Packet{Response: &resp}, total, nil
	default:
		return Packet{}, 0, &MalformedFrameError{Bytes: len(buf), Err: fmt.Errorf("unrecognized magic %08x", magic)}
	}
}

func decodeRequest(kind uint32, payload []byte) (Request, error) {
	switch RequestKind(kind) {
	case ReqSetClientID:
		return Request{Kind: ReqSetClientID, ID: append([]byte(nil), payload...)}, nil
	case ReqCanDo:
		return Request{Kind: ReqCanDo, Name: string(payload)}, nil
	case ReqCantDo:
		return Request{Kind: ReqCantDo, Name: string(payload)}, nil
	case ReqPreSleep:
		return Request{Kind: ReqPreSleep}, nil
	case ReqGrabJobUniq:
		return Request{Kind: ReqGrabJobUniq}, nil
	case ReqWorkStatus:
		handle, rest, ok := splitNUL(payload)
		if !ok {
			return Request{}, fmt.Errorf("%w: WorkStatus missing handle terminator", ErrMalformedFrame)
		}
		numerator, denominator, ok := splitNUL(rest)
		if !ok {
			return Request{}, fmt.Errorf("%w: WorkStatus missing numerator terminator", ErrMalformedFrame)
		}
		return Request{Kind: ReqWorkStatus, Handle: handle, Numerator: numerator, Denominator: string(denominator)}, nil
	case ReqWorkComplete:
		handle, data, ok := splitNUL(payload)
		if !ok {
			return Request{}, fmt.Errorf("%w: WorkComplete missing handle terminator", ErrMalformedFrame)
		}
		return Request{Kind: ReqWorkComplete, Handle: handle, Data: append([]byte(nil), data...)}, nil
	case ReqWorkFail:
		return Request{Kind: ReqWorkFail, Handle: string(payload)}, nil
	case ReqWorkException:
		handle, data, ok := splitNUL(payload)
		if !ok {
			return Request{}, fmt.Errorf("%w: WorkException missing handle terminator", ErrMalformedFrame)
		}
		return Request{Kind: ReqWorkException, Handle: handle, Data: append([]byte(nil), data...)}, nil
	case ReqWorkData:
		handle, data, ok := splitNUL(payload)
		if !ok {
			return Request{}, fmt.Errorf("%w: WorkData missing handle terminator", ErrMalformedFrame)
		}
		return Request{Kind: ReqWorkData, Handle: handle, Data: append([]byte(nil), data...)}, nil
	default:
		return Request{}, fmt.Errorf("%w: unrecognized request kind %d", ErrMalformedFrame, kind)
	}
}

func decodeResponse(kind uint32, payload []byte) Response {
	switch ResponseKind(kind) {
	case ResNoop:
		return Response{Kind: ResNoop}
	case ResNoJob:
		return Response{Kind: ResNoJob}
	case ResJobAssignUniq:
		fields := bytes.SplitN(payload, []byte{0}, 4)
		if len(fields) != 4 {
			// Malformed JobAssignUniq bodies are still reported as a
			// successfully-decoded ignore: the server is trusted, and the
			// Reader's resilience policy only discards on frame-level
			// malformation, not on an oddly-shaped known frame.
			return Response{Kind: ResIgnore, RawKind: kind}
		}
		return Response{
			Kind:     ResJobAssignUniq,
			Handle:   string(fields[0]),
			Name:     string(fields[1]),
			Unique:   string(fields[2]),
			Workload: append([]byte(nil), fields[3]...),
		}
	default:
		return Response{Kind: ResIgnore, RawKind: kind}
	}
}

// splitNUL splits at the first NUL byte, returning the part before it (as
// a string) and the remainder (without the NUL). ok is false if there is
// no NUL byte in data.
func splitNUL(data []byte) (head string, rest []byte, ok bool) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", nil, false
	}
	return string(data[:i]), data[i+1:], true
}

// Encode serializes a Request to its on-wire form. The encoded length
// field always equals the actual payload byte count.
func Encode(r Request) []byte {
	payload := requestPayload(r)
	buf := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], magicRequest)
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.Kind))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(payload)))
	copy(buf[frameHeaderLen:], payload)
	return buf
}

// EncodeResponse serializes a Response to its on-wire form. Exercised by
// tests and by anything (e.g. a fake dispatch server in integration
// tests) that needs to synthesize inbound frames.
func EncodeResponse(r Response) []byte {
	payload := responsePayload(r)
	buf := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], magicResponse)
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.Kind))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(payload)))
	copy(buf[frameHeaderLen:], payload)
	return buf
}

func requestPayload(r Request) []byte {
	switch r.Kind {
	case ReqSetClientID:
		return r.ID
	case ReqCanDo, ReqCantDo:
		return []byte(r.Name)
	case ReqPreSleep, ReqGrabJobUniq:
		return nil
	case ReqWorkStatus:
		buf := make([]byte, 0, len(r.Handle)+1+len(r.Numerator)+1+len(r.Denominator))
		buf = append(buf, r.Handle...)
		buf = append(buf, 0)
		buf = append(buf, r.Numerator...)
		buf = append(buf, 0)
		buf = append(buf, r.Denominator...)
		return buf
	case ReqWorkComplete, ReqWorkException, ReqWorkData:
		buf := make([]byte, 0, len(r.Handle)+1+len(r.Data))
		buf = append(buf, r.Handle...)
		buf = append(buf, 0)
		buf = append(buf, r.Data...)
		return buf
	case ReqWorkFail:
		return []byte(r.Handle)
	default:
		return nil
	}
}

func responsePayload(r Response) []byte {
	switch r.Kind {
	case ResNoop, ResNoJob:
		return nil
	case ResJobAssignUniq:
		buf := make([]byte, 0, len(r.Handle)+1+len(r.Name)+1+len(r.Unique)+1+len(r.Workload))
		buf = append(buf, r.Handle...)
		buf = append(buf, 0)
		buf = append(buf, r.Name...)
		buf = append(buf, 0)
		buf = append(buf, r.Unique...)
		buf = append(buf, 0)
		buf = append(buf, r.Workload...)
		return buf
	default:
		return nil
	}
}
