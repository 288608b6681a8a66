package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

var mediaSuffixes = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".tif": {}, ".tiff": {}, ".bmp": {}, ".pdf": {},
}

// Scanner walks a package root and produces the complete artifact inventory
// with extracted metadata. It writes nothing.
type Scanner struct {
	root string
	lib  *knowledge.Library
}

// NewScanner creates a scanner over the given package root using an
// already-loaded pattern library.
func NewScanner(root string, lib *knowledge.Library) *Scanner {
	return &Scanner{root: root, lib: lib}
}

type scanEntry struct {
	absPath string
	relPath string
	kind    models.ArtifactKind
	size    int64
}

// Scan inventories the package. Metadata extraction and pattern evaluation
// run in parallel across artifacts (both are pure per-file work); results
// are merged back in path order so parallelism never leaks into the
// contract. A single malformed XML document aborts the whole run.
func (s *Scanner) Scan(ctx context.Context) ([]models.Artifact, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolving source root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root is not a directory: %s", root)
	}

	entries, err := s.collect(root)
	if err != nil {
		return nil, err
	}

	artifacts := make([]models.Artifact, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			artifact, err := s.scanOne(entry)
			if err != nil {
				return err
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	promoteMainMap(artifacts)

	return artifacts, nil
}

// collect walks the tree and classifies files by suffix, returning entries
// sorted by package-relative path.
func (s *Scanner) collect(root string) ([]scanEntry, error) {
	var entries []scanEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		suffix := strings.ToLower(filepath.Ext(path))

		var kind models.ArtifactKind
		switch {
		case suffix == ".ditamap":
			kind = models.KindMap
		case suffix == ".dita":
			kind = models.KindTopic
		default:
			if _, ok := mediaSuffixes[suffix]; !ok {
				return nil
			}
			kind = models.KindMedia
		}

		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}

		entries = append(entries, scanEntry{
			absPath: path,
			relPath: rel,
			kind:    kind,
			size:    size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })
	return entries, nil
}

// scanOne builds a single artifact: metadata, evidence, classification.
// Media is inventory-only and never classified.
func (s *Scanner) scanOne(entry scanEntry) (models.Artifact, error) {
	if entry.kind == models.KindMedia {
		return models.Artifact{
			Path: entry.relPath,
			Kind: models.KindMedia,
			Metadata: models.Metadata{
				Filename:  filepath.Base(entry.relPath),
				Extension: strings.ToLower(filepath.Ext(entry.relPath)),
				SizeBytes: entry.size,
			},
		}, nil
	}

	md, notes, err := extractMetadata(entry.absPath, entry.relPath, entry.kind)
	if err != nil {
		return models.Artifact{}, err
	}

	artifact := models.Artifact{
		Path:     entry.relPath,
		Kind:     entry.kind,
		Metadata: md,
		Notes:    notes,
	}
	artifact.Evidence = EvaluatePatterns(artifact, s.lib.Patterns)
	artifact.Classification = ResolveEvidence(artifact.Evidence)
	return artifact, nil
}

// promotionPatternID tags the synthetic evidence emitted when discovery
// promotes a map to MAIN in the absence of a pattern assertion.
const promotionPatternID = "main_map_promotion"

// promoteMainMap normalizes packages where no map resolved to MAIN. A lone
// map is promoted with full confidence; among several, the lexicographically
// smallest path is promoted at low confidence so downstream invariants still
// see exactly one MAIN candidate. The promotion is recorded as synthetic
// evidence and a note, never silently.
func promoteMainMap(artifacts []models.Artifact) {
	var maps []int
	for i := range artifacts {
		if artifacts[i].Kind != models.KindMap {
			continue
		}
		if c := artifacts[i].Classification; c != nil && c.Role == knowledge.RoleMain {
			return
		}
		maps = append(maps, i)
	}
	if len(maps) == 0 {
		return
	}

	// Entries are path-sorted, so the first map index is the smallest path.
	idx := maps[0]
	confidence := 1.0
	detail := "promoted sole map to MAIN"
	if len(maps) > 1 {
		confidence = 0.2
		detail = "no MAIN map asserted by patterns; promoted lexicographically smallest map"
	}

	a := &artifacts[idx]
	ev := models.Evidence{
		PatternID:    promotionPatternID,
		ArtifactPath: a.Path,
		AssertedRole: knowledge.RoleMain,
		Confidence:   confidence,
		Rationale:    []string{detail},
	}
	a.Evidence = append(a.Evidence, ev)
	a.Classification = &models.Classification{
		Role:            knowledge.RoleMain,
		Confidence:      confidence,
		SourcePatternID: promotionPatternID,
	}
	a.Notes = append(a.Notes, detail)
}
