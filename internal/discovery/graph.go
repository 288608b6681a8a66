package discovery

import (
	"path"
	"sort"
	"strings"

	"ditapack/pkg/models"
)

// edgePatternIDs name the extraction rule that produced each edge kind.
// They are stable identifiers carried into the contract for traceability.
var edgePatternIDs = map[string]string{
	"topicref": "dita_map_topicref",
	"mapref":   "dita_map_mapref",
	"image":    "dita_topic_image",
	"xref":     "dita_topic_xref",
	"object":   "dita_topic_object",
}

// BuildGraph derives the directed dependency graph from the reference lists
// the scanner extracted. It is a pure path computation: hrefs resolve
// relative to the referencing file, fragments are stripped, external URLs
// and fragment-only anchors are ignored, and anything escaping the package
// root is dropped as unrepresentable.
//
// Edges whose normalized target is not a known artifact are recorded under
// Dangling: structural facts for invariant checking, never fatal and never
// silently discarded. Cycles are representable; the builder makes no
// acyclicity assumption.
func BuildGraph(artifacts []models.Artifact) models.Graph {
	known := make(map[string]struct{}, len(artifacts))
	nodes := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		known[a.Path] = struct{}{}
		nodes = append(nodes, a.Path)
	}
	sort.Strings(nodes)

	graph := models.Graph{Nodes: nodes}

	for _, a := range artifacts {
		for _, ref := range a.Metadata.References {
			target, ok := normalizeTarget(a.Path, ref.Href)
			if !ok {
				continue
			}
			edge := models.Edge{
				Source:    a.Path,
				Target:    target,
				Type:      ref.Element,
				PatternID: edgePatternIDs[ref.Element],
			}
			if _, exists := known[target]; exists {
				graph.Edges = append(graph.Edges, edge)
			} else {
				graph.Dangling = append(graph.Dangling, edge)
			}
		}
	}

	return graph
}

// normalizeTarget converts one href into a package-relative file path.
// Returns false for references that produce no file-level edge.
func normalizeTarget(sourcePath, href string) (string, bool) {
	// Strip fragment; a fragment-only href is an intra-file link.
	file := href
	if i := strings.IndexByte(file, '#'); i >= 0 {
		file = file[:i]
	}
	if file == "" {
		return "", false
	}

	lower := strings.ToLower(file)
	for _, scheme := range []string{"http://", "https://", "mailto:", "ftp://"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	resolved := path.Clean(path.Join(path.Dir(sourcePath), strings.ReplaceAll(file, "\\", "/")))
	// A target that climbs out of the package root has no in-package
	// identity; discovery cannot represent it.
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", false
	}
	return resolved, true
}
