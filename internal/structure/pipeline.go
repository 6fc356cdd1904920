// Package structure reconstructs a project's file tree from free-text
// convention rows.
//
// The pipeline is a chain of pure stages (line filter, cleaner, normalizer,
// deduplicator, tree inserter); each stage is a field of Pipeline so it can
// be swapped or tested on its own.
package structure

import (
	"slices"
	"strings"
)

// Structure is the persisted artifact for one project.
type Structure struct {
	Root  *Node    `json:"root"`
	Paths []string `json:"paths"`
}

// Pipeline wires the parsing stages together.
type Pipeline struct {
	Accept     func(line string) bool
	Clean      func(line string) (string, bool)
	Normalizer Normalizer
}

// NewPipeline returns the default pipeline stripping the given root prefixes.
func NewPipeline(rootPrefixes []string) Pipeline {
	return Pipeline{
		Accept:     IsCandidate,
		Clean:      Clean,
		Normalizer: NewNormalizer(rootPrefixes),
	}
}

// Extract returns the normalized path candidates found in text, in order of
// appearance. Duplicates are kept; Dedupe removes them.
func (p Pipeline) Extract(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" || !p.Accept(line) {
			continue
		}
		cleaned, ok := p.Clean(line)
		if !ok {
			continue
		}
		if n := p.Normalizer.Normalize(cleaned); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Dedupe reduces paths to a set, returned sorted so builds are deterministic.
func Dedupe(paths []string) []string {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Build extracts, deduplicates and inserts every path found in texts.
func (p Pipeline) Build(texts []string) *Structure {
	var all []string
	for _, t := range texts {
		all = append(all, p.Extract(t)...)
	}
	return p.BuildPaths(all)
}

// BuildPaths deduplicates already-extracted paths and assembles the tree.
func (p Pipeline) BuildPaths(paths []string) *Structure {
	normalized := make([]string, 0, len(paths))
	for _, s := range paths {
		if n := p.Normalizer.Normalize(s); n != "" {
			normalized = append(normalized, n)
		}
	}
	unique := Dedupe(normalized)

	tree := NewTree(p.Normalizer)
	for _, path := range unique {
		tree.Insert(path)
	}
	return &Structure{Root: tree.Root, Paths: unique}
}
