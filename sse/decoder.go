package sse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/docchat"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder converts a byte stream into frames. It is not safe for concurrent
// use and cannot be rewound; decode a new stream with a new Decoder.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte // bytes of an incomplete character at the chunk tail
	scratch []byte
	line    []byte // decoded text of the current unterminated line
	sawCR   bool   // last line ended in '\r'; swallow a following '\n'
	event   string
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{utf8: unicode.UTF8.NewDecoder()}
}

// Decode consumes the next chunk and returns the frames it completed.
// Bytes of a character split across chunks are held until the rest
// arrives. Invalid sequences decode to U+FFFD.
func (d *Decoder) Decode(chunk []byte) ([]Frame, error) {
	text, err := d.decodeText(chunk)
	if err != nil {
		return nil, fmt.Errorf("sse: decode: %w", err)
	}
	return d.scan(text, nil), nil
}

// Finish flushes the final unterminated line. It fails with
// ErrTruncatedStream when the input ended inside a multi-byte character;
// frames completed before that point are still returned.
func (d *Decoder) Finish() ([]Frame, error) {
	var frames []Frame
	if len(d.line) > 0 {
		frames = d.endLine(frames)
	}
	if n := len(d.pending); n > 0 {
		d.pending = nil
		return frames, fmt.Errorf("sse: %d trailing bytes of an incomplete character: %w", n, docchat.ErrTruncatedStream)
	}
	return frames, nil
}

func (d *Decoder) decodeText(chunk []byte) ([]byte, error) {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	// Each source byte decodes to at most three bytes (U+FFFD).
	if need := 3*len(src) + utf8.UTFMax; cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	dst := d.scratch[:cap(d.scratch)]

	var out []byte
	for {
		nDst, nSrc, err := d.utf8.Transform(dst, src, false)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		switch err {
		case nil:
			return out, nil
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
			return out, nil
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		default:
			return out, err
		}
	}
}

// scan splits decoded text on "\n", "\r\n" and "\r". A "\r\n" pair split
// across chunks is recognised through sawCR.
func (d *Decoder) scan(text []byte, frames []Frame) []Frame {
	for _, b := range text {
		if d.sawCR {
			d.sawCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\r':
			d.sawCR = true
			frames = d.endLine(frames)
		case '\n':
			frames = d.endLine(frames)
		default:
			d.line = append(d.line, b)
		}
	}
	return frames
}

func (d *Decoder) endLine(frames []Frame) []Frame {
	line := string(d.line)
	d.line = d.line[:0]
	if f, ok := d.parseLine(line); ok {
		frames = append(frames, f)
	}
	return frames
}

// parseLine applies the framing convention to one complete line.
func (d *Decoder) parseLine(line string) (Frame, bool) {
	if strings.TrimSpace(line) == "" {
		d.event = EventMessage
		return Frame{}, false
	}
	if strings.HasPrefix(line, ":") {
		return Frame{}, false
	}
	field, value, _ := strings.Cut(line, ":")
	switch field {
	case "data":
		return d.frame(value)
	case "event":
		d.event = strings.TrimSpace(value)
		return Frame{}, false
	case "id", "retry":
		return Frame{}, false
	default:
		// Bare text without the marker is kept as a unit of its own.
		return d.frame(line)
	}
}

func (d *Decoder) frame(data string) (Frame, bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Frame{}, false
	}
	return Frame{Event: d.event, Data: data}, true
}
