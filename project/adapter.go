package project

import (
	"bytes"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/mr-martian/transfuse/sentinel"
)

// documentRootTag names the synthetic wrapper element the plain-text
// adapter path uses, so the Block Extractor has an element tree to walk
// even when the source carries no markup of its own.
const documentRootTag = "document"

// ParseInput produces the element tree the core pipeline operates on for
// the formats this repository ships an adapter for, and the raw bytes read
// from r (for writing the project's original file). docx/pptx/odt need a
// container-unpacking adapter of their own, which spec.md §1 places out of
// scope for this engine, so they report a clear error rather than
// misparsing an archive as XML.
func ParseInput(r io.Reader, srcName, format string) (*etree.Document, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read input %s: %w", srcName, err)
	}
	if sentinel.ContainsReservedCodepoints(string(data)) {
		return nil, nil, sentinel.ErrReservedCodepoint(srcName)
	}

	switch format {
	case "html", "html-fragment", "xml":
		doc := etree.NewDocument()
		doc.ReadSettings.CharsetReader = charset.NewReaderLabel
		doc.ReadSettings.Permissive = true
		if _, err := doc.ReadFrom(bytes.NewReader(data)); err != nil {
			return nil, nil, fmt.Errorf("parse %s input %s: %w", format, srcName, err)
		}
		if doc.Root() == nil {
			return nil, nil, fmt.Errorf("%s has no root element", srcName)
		}
		return doc, data, nil

	case "text":
		doc := etree.NewDocument()
		root := doc.CreateElement(documentRootTag)
		root.CreateText(string(data))
		return doc, data, nil

	case "docx", "pptx", "odt":
		return nil, nil, fmt.Errorf("format %q needs a container-unpacking format adapter, which spec.md §1 places out of scope for this engine", format)

	default:
		return nil, nil, fmt.Errorf("unknown format %q", format)
	}
}
