package bufrio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/metno/gobufr/internal/logbuf"
)

// Stream generalizes the teacher's Stream abstraction (Read+Seek) over a
// plain io.ReadSeeker instead of a cgo-backed VFS handle, since nothing in
// this decoder's scope needs object-store access; see DESIGN.md's note on
// the dropped TileDB dependency.
type Stream interface {
	io.Reader
	io.Seeker
}

// FindNext scans r for the literal four-byte "BUFR" marker, returning the
// stream offset at which it begins. It returns ErrNoMarker (a benign
// end-of-stream condition, not a hard failure) if none is found.
func FindNext(r Stream) (int64, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 4096)
	window := make([]byte, 0, 8192)
	base := start // stream offset of window[0]
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			window = append(window, buf[:n]...)
			if idx := bytes.Index(window, []byte("BUFR")); idx >= 0 {
				found := base + int64(idx)
				if _, err := r.Seek(found, io.SeekStart); err != nil {
					return 0, err
				}
				return found, nil
			}
			if len(window) > 8192 {
				base += int64(len(window) - 4)
				window = window[len(window)-4:]
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return 0, ErrNoMarker
			}
			return 0, rerr
		}
	}
}

// CheckBuffer scans a loaded Section-0..5 buffer for a rogue second "BUFR"
// marker (indicating a truncated envelope spliced against the next one, or
// a declared length that overruns the next envelope's header) and for the
// "7777" end marker. If a rogue marker is found anywhere inside the
// declared length, it truncates len (at the end of a "7777" that precedes
// the rogue marker, otherwise at the rogue marker itself) and reports the
// rewind distance so the caller can reposition its stream cursor before
// the rogue marker and retry, mirroring NorBufr::checkBuffer.
func CheckBuffer(buf []byte, declaredLen int) (truncatedLen int, rewind int64, recovered bool) {
	end := declaredLen
	if end > len(buf) {
		end = len(buf)
	}

	endIdx := -1
	if idx := bytes.Index(buf[:end], []byte("7777")); idx >= 0 {
		endIdx = idx + 4
	}

	// Scan for a second "BUFR" marker after the first four bytes.
	rogueIdx := -1
	if len(buf) > 4 {
		if idx := bytes.Index(buf[4:end], []byte("BUFR")); idx >= 0 {
			rogueIdx = idx + 4
		}
	}

	if rogueIdx >= 0 {
		truncatedLen = rogueIdx
		if endIdx > 0 && endIdx < rogueIdx {
			truncatedLen = endIdx
		}
		rewind = int64(rogueIdx) - int64(declaredLen)
		return truncatedLen, rewind, true
	}
	return declaredLen, 0, false
}

// Reader wraps a Stream and yields one Message per call to Next, applying
// CheckBuffer recovery internally and reporting recoverable warnings
// through an injected log Buffer.
type Reader struct {
	s   Stream
	log *logbuf.Buffer
}

// NewReader returns a Reader over s, logging recoverable conditions to log
// (which may be nil to discard them).
func NewReader(s Stream, log *logbuf.Buffer) *Reader {
	return &Reader{s: s, log: log}
}

func (r *Reader) warnf(format string, args ...any) {
	if r.log != nil {
		r.log.Warnf("bufrio", "", format, args...)
	}
}

func (r *Reader) errorf(format string, args ...any) {
	if r.log != nil {
		r.log.Errorf("bufrio", "", format, args...)
	}
}

// Next locates and parses the next BUFR envelope, returning io.EOF when no
// further marker is found.
func (r *Reader) Next() (*Message, error) {
	start, err := FindNext(r.s)
	if err != nil {
		if err == ErrNoMarker {
			return nil, io.EOF
		}
		return nil, err
	}

	header := make([]byte, 8)
	if _, err := io.ReadFull(r.s, header); err != nil {
		return nil, fmt.Errorf("bufrio: reading section 0 at offset %d: %w", start, err)
	}
	totalLen, edition, err := ParseSection0(header)
	if err != nil {
		return nil, err
	}

	if _, err := r.s.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	raw := make([]byte, totalLen)
	n, _ := io.ReadFull(r.s, raw)
	raw = raw[:n]

	truncated, rewind, recovered := CheckBuffer(raw, totalLen)
	if recovered {
		r.errorf("spurious inner BUFR marker detected, truncating envelope at offset %d", start+int64(truncated))
		raw = raw[:truncated]
		if _, err := r.s.Seek(start+int64(totalLen)+rewind, io.SeekStart); err != nil {
			return nil, err
		}
	}

	msg, perr := parseEnvelope(raw, edition)
	if perr != nil {
		r.errorf("parse error in envelope at offset %d: %v", start, perr)
		return nil, perr
	}
	return msg, nil
}

func parseEnvelope(raw []byte, edition uint8) (*Message, error) {
	msg := &Message{Edition: edition, TotalLen: len(raw)}

	s1, s1len, err := ParseSection1(raw[8:], edition)
	if err != nil {
		return nil, fmt.Errorf("section 1: %w", err)
	}
	msg.Section1 = s1
	cursor := 8 + s1len

	if s1.OptSection() {
		s2, s2len, err := ParseSection2(raw[cursor:])
		if err != nil {
			return nil, fmt.Errorf("section 2: %w", err)
		}
		msg.Section2 = s2
		cursor += s2len
	}

	s3, s3len, err := ParseSection3(raw[cursor:])
	if err != nil {
		return nil, fmt.Errorf("section 3: %w", err)
	}
	msg.Section3 = s3
	cursor += s3len

	payload, bitLen, _, err := ParseSection4(raw[cursor:])
	if err != nil {
		return nil, fmt.Errorf("section 4: %w", err)
	}
	msg.Section4Bits = payload
	msg.Section4Len = bitLen

	return msg, nil
}
