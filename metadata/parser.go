package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/errs"
)

// DefaultDumpPath is where raw metadata XML is written when dumping is enabled
// without an explicit path.
var DefaultDumpPath = filepath.Join(os.TempDir(), "zisraw_metadata.xml")

type frame struct {
	name string
	m    *PropertyMap
	text strings.Builder
}

// Parse parses length bytes of XML starting at offset of buf.
func Parse(buf *buffer.Buffer, offset, length int) (*PropertyMap, error) {
	if offset < 0 || length < 0 || int64(offset)+int64(length) > int64(buf.Len()) {
		return nil, fmt.Errorf("%w: %w", errs.ErrMetadataParse,
			errs.OutOfRange("metadata range", int64(offset)+int64(length), int64(buf.Len())))
	}

	return ParseXML(buf.Bytes()[offset : offset+length])
}

// ParseXML parses an XML document. Comments and processing instructions are
// dropped, character data is trimmed.
func ParseXML(data []byte) (*PropertyMap, error) {
	// trailing NUL padding is common in fixed-size metadata areas
	data = bytes.TrimRight(data, "\x00")

	root := &frame{m: New()}
	stack := []*frame{root}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrMetadataParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{name: t.Name.Local, m: New()}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				f.m.entries[AttrPrefix+attr.Name.Local] = &Property{Values: []string{attr.Value}}
			}
			stack = append(stack, f)
		case xml.CharData:
			top := stack[len(stack)-1]
			if top != root {
				top.text.Write(t)
			}
		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]

			text := strings.TrimSpace(f.text.String())
			if f.m.Len() == 0 {
				parent.m.add(f.name, &Property{Values: []string{text}})
				continue
			}
			if text != "" {
				f.m.entries[TextKey] = &Property{Values: []string{text}}
			}
			parent.m.add(f.name, &Property{Map: f.m})
		}
	}

	if root.m.Len() == 0 {
		return nil, fmt.Errorf("%w: no root element", errs.ErrMetadataParse)
	}

	return root.m, nil
}

// Dump writes raw metadata bytes to path, or DefaultDumpPath when path is empty.
// It returns the path written.
func Dump(path string, data []byte) (string, error) {
	if path == "" {
		path = DefaultDumpPath
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return path, fmt.Errorf("dump metadata to %s: %w", path, err)
	}

	return path, nil
}
