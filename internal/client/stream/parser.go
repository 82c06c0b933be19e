package stream

import (
	"bytes"
	"errors"
)

// MaxLineSize bounds a single event-stream line. Longer lines are
// discarded up to the next line break.
const MaxLineSize = 64 * 1024

var ErrLineTooLong = errors.New("event stream line too long")

// Event is one dispatched event-stream record.
type Event struct {
	ID   string
	Name string
	Data []byte
}

// Parser turns an event-stream byte sequence into records. Input may be
// split at arbitrary points; Feed keeps partial lines between calls.
//
// The zero value is ready to use.
type Parser struct {
	buf      []byte
	skipping bool

	id      string
	name    string
	data    []byte
	hasData bool
}

// Feed consumes chunk and returns the records it completed. A line that
// exceeds MaxLineSize is dropped and reported as ErrLineTooLong; parsing
// continues with the next line.
func (p *Parser) Feed(chunk []byte) ([]Event, error) {
	var (
		events []Event
		err    error
	)

	p.buf = append(p.buf, chunk...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		p.buf = p.buf[i+1:]

		if p.skipping {
			p.skipping = false
			continue
		}
		if len(line) > MaxLineSize {
			err = ErrLineTooLong
			continue
		}
		if ev, ok := p.line(bytes.TrimSuffix(line, []byte("\r"))); ok {
			events = append(events, ev)
		}
	}

	if len(p.buf) > MaxLineSize {
		p.buf = p.buf[:0]
		p.skipping = true
		err = ErrLineTooLong
	}
	// Release the backing array once drained.
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return events, err
}

func (p *Parser) line(line []byte) (Event, bool) {
	if len(line) == 0 {
		return p.emit()
	}
	if line[0] == ':' {
		return Event{}, false
	}

	field, value, found := bytes.Cut(line, []byte(":"))
	if found {
		value = bytes.TrimPrefix(value, []byte(" "))
	}

	switch string(field) {
	case "id":
		p.id = string(value)
	case "event":
		p.name = string(value)
	case "data":
		if p.hasData {
			p.data = append(p.data, '\n')
		}
		p.data = append(p.data, value...)
		p.hasData = true
	}
	return Event{}, false
}

func (p *Parser) emit() (Event, bool) {
	if !p.hasData && p.name == "" {
		p.id = ""
		return Event{}, false
	}

	ev := Event{ID: p.id, Name: p.name, Data: p.data}
	if ev.Name == "" {
		ev.Name = "message"
	}
	if p.hasData && ev.Data == nil {
		ev.Data = []byte{}
	}
	p.id, p.name, p.data, p.hasData = "", "", nil, false
	return ev, true
}
