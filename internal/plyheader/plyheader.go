// Package plyheader parses and renders the ASCII header shared by both PLY
// wire formats in this codec: "ply\nformat binary_little_endian 1.0\n"
// followed by one or more element declarations and "end_header\n".
package plyheader

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/opsiclear/gogsply/internal/codecerr"
)

// MaxProbeBytes is the maximum number of header bytes this package will
// scan for "end_header" before giving up.
const MaxProbeBytes = 8192

// Property is a single "property <type> <name>" declaration.
type Property struct {
	Type string
	Name string
}

// Element is one "element <name> <count>" declaration and its properties.
type Element struct {
	Name       string
	Count      int
	Properties []Property
	// Comments holds any "comment ..." lines that appeared after this
	// element's own "element" line and before the next element (before or
	// between its properties alike), preserved verbatim (minus the
	// "comment " prefix).
	Comments []string
}

// Header is the parsed form of a PLY ASCII header.
type Header struct {
	Elements []Element
	// Len is the number of bytes from the start of the stream through and
	// including the "end_header\n" line.
	Len int
}

// Element looks up an element by name.
func (h Header) Element(name string) (Element, bool) {
	for _, e := range h.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

// FloatPropertyCount counts properties of type "float" on the element.
func (e Element) FloatPropertyCount() int {
	n := 0
	for _, p := range e.Properties {
		if p.Type == "float" {
			n++
		}
	}
	return n
}

// Parse reads a PLY ASCII header from the start of buf. buf need not
// contain the full file, only enough to reach "end_header\n" (the caller is
// expected to have read at least plyheader.MaxProbeBytes, or the whole
// file if smaller). It returns an error if the magic/format lines are
// missing or no "end_header" line is found.
func Parse(buf []byte) (Header, error) {
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	scanner.Buffer(make([]byte, 0, 1024), MaxProbeBytes)

	var h Header
	lineNo := 0
	var cur *Element
	sawMagic, sawFormat, sawEnd := false, false, false

	for scanner.Scan() {
		line := scanner.Text()
		h.Len += len(line) + 1 // +1 for the newline consumed by Scan
		lineNo++
		trimmed := strings.TrimSpace(line)
		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "ply":
			if lineNo != 1 {
				return Header{}, fmt.Errorf("plyheader: magic %q not on first line: %w", trimmed, codecerr.ErrHeaderMalformed)
			}
			sawMagic = true
		case "format":
			if len(fields) < 3 || fields[1] != "binary_little_endian" {
				return Header{}, fmt.Errorf("plyheader: unsupported format line %q: %w", trimmed, codecerr.ErrHeaderMalformed)
			}
			sawFormat = true
		case "comment":
			if cur != nil {
				cur.Comments = append(cur.Comments, strings.TrimPrefix(trimmed, "comment "))
			}
		case "element":
			if len(fields) != 3 {
				return Header{}, fmt.Errorf("plyheader: malformed element line %q: %w", trimmed, codecerr.ErrHeaderMalformed)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil {
				return Header{}, fmt.Errorf("plyheader: bad element count in %q: %w: %w", trimmed, err, codecerr.ErrHeaderMalformed)
			}
			h.Elements = append(h.Elements, Element{Name: fields[1], Count: count})
			cur = &h.Elements[len(h.Elements)-1]
		case "property":
			if cur == nil || len(fields) < 3 {
				return Header{}, fmt.Errorf("plyheader: property outside element: %q: %w", trimmed, codecerr.ErrHeaderMalformed)
			}
			cur.Properties = append(cur.Properties, Property{Type: fields[1], Name: fields[2]})
		case "end_header":
			sawEnd = true
		default:
			return Header{}, fmt.Errorf("plyheader: unrecognized header line %q: %w", trimmed, codecerr.ErrHeaderMalformed)
		}
		if sawEnd {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return Header{}, fmt.Errorf("plyheader: scanning header: %w", err)
	}
	if !sawMagic {
		return Header{}, fmt.Errorf("plyheader: missing \"ply\" magic line: %w", codecerr.ErrHeaderMalformed)
	}
	if !sawFormat {
		return Header{}, fmt.Errorf("plyheader: missing format line: %w", codecerr.ErrHeaderMalformed)
	}
	if !sawEnd {
		return Header{}, fmt.Errorf("plyheader: no end_header within %d bytes: %w", MaxProbeBytes, codecerr.ErrHeaderMalformed)
	}
	return h, nil
}

// Builder renders a PLY ASCII header.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder starts a new header with the magic and format lines written.
func NewBuilder() *Builder {
	b := &Builder{}
	b.buf.WriteString("ply\n")
	b.buf.WriteString("format binary_little_endian 1.0\n")
	return b
}

// Element starts a new "element <name> <count>" declaration.
func (b *Builder) Element(name string, count int) *Builder {
	fmt.Fprintf(&b.buf, "element %s %d\n", name, count)
	return b
}

// Property appends a "property <type> <name>" line to the current element.
func (b *Builder) Property(typ, name string) *Builder {
	fmt.Fprintf(&b.buf, "property %s %s\n", typ, name)
	return b
}

// Comment appends a "comment <text>" line.
func (b *Builder) Comment(text string) *Builder {
	fmt.Fprintf(&b.buf, "comment %s\n", text)
	return b
}

// Bytes finishes the header with "end_header\n" and returns the full byte
// sequence.
func (b *Builder) Bytes() []byte {
	b.buf.WriteString("end_header\n")
	return b.buf.Bytes()
}
