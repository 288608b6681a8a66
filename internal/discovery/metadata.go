// Package discovery turns an unknown package tree into classified,
// evidence-backed structural facts: an artifact inventory, a dependency
// graph, invariant results, and the durable discovery contract consumed by
// planning. Discovery is strictly read-only.
package discovery

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ditapack/pkg/models"
)

// ParseError marks a syntactically broken XML document. It is fatal for the
// whole discovery run: all later reasoning depends on metadata truth, and
// partial metadata would corrupt invariant checking.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed XML in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// referenceElements are the elements whose href attributes become graph
// edges: map composition, topic inclusion, and media/cross references.
var referenceElements = map[string]struct{}{
	"topicref": {},
	"mapref":   {},
	"image":    {},
	"xref":     {},
	"object":   {},
}

// trackedElements are the element local names recorded as presence flags in
// artifact metadata. Signal evaluation matches against this set.
var trackedElements = map[string]struct{}{
	"topicref":   {},
	"mapref":     {},
	"title":      {},
	"glossentry": {},
	"glossgroup": {},
	"shortdesc":  {},
	"body":       {},
}

// extractMetadata tokenizes one DITA XML file and records structural facts:
// root element, element presence, title text, and outgoing references. It
// never interprets what it sees.
//
// A syntactically broken document returns *ParseError. A well-formed but
// schema-deviant document yields best-effort metadata and a parse warning in
// the returned notes.
func extractMetadata(path, relPath string, kind models.ArtifactKind) (models.Metadata, []string, error) {
	md := models.Metadata{
		Filename:  filepath.Base(relPath),
		Extension: strings.ToLower(filepath.Ext(relPath)),
	}

	f, err := os.Open(path)
	if err != nil {
		return md, nil, fmt.Errorf("opening %s: %w", relPath, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	// DITA sources in the wild declare legacy encodings; pass bytes through
	// rather than failing on the declaration alone.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var notes []string
	contains := make(map[string]struct{})
	var inTitle bool
	var titleDepth int
	var depth int

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return md, nil, &ParseError{Path: relPath, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			local := t.Name.Local
			if depth == 1 {
				md.RootElement = strings.ToLower(local)
			}
			if _, ok := trackedElements[local]; ok {
				contains[local] = struct{}{}
			}
			if local == "title" && md.Title == "" {
				inTitle = true
				titleDepth = depth
			}
			if _, ok := referenceElements[local]; ok {
				for _, attr := range t.Attr {
					if attr.Name.Local == "href" && attr.Value != "" {
						md.References = append(md.References, models.Reference{
							Element: local,
							Href:    attr.Value,
						})
					}
				}
			}
		case xml.EndElement:
			if inTitle && depth == titleDepth {
				inTitle = false
			}
			depth--
		case xml.CharData:
			if inTitle && md.Title == "" {
				text := strings.TrimSpace(string(t))
				if text != "" {
					md.Title = text
				}
			}
		}
	}

	if md.RootElement == "" {
		return md, nil, &ParseError{Path: relPath, Err: fmt.Errorf("no root element")}
	}

	for name := range contains {
		md.Contains = append(md.Contains, name)
	}
	sort.Strings(md.Contains)

	if warn := schemaWarning(kind, md.RootElement); warn != "" {
		notes = append(notes, warn)
	}

	return md, notes, nil
}

// schemaWarning reports a deviation between the artifact's file suffix and
// its root element. Deviations are recorded, not fatal.
func schemaWarning(kind models.ArtifactKind, root string) string {
	switch kind {
	case models.KindMap:
		if root != "map" && root != "bookmap" {
			return fmt.Sprintf("parse warning: .ditamap file has unexpected root element <%s>", root)
		}
	case models.KindTopic:
		switch root {
		case "topic", "concept", "task", "reference", "glossentry", "glossgroup":
		default:
			return fmt.Sprintf("parse warning: .dita file has unexpected root element <%s>", root)
		}
	}
	return ""
}
