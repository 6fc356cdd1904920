// Package bucket holds the static mapping from a human-facing bucket label
// to the collection (table) that stores its items.
//
// The registry is parsed once from the embedded registry.yaml at package
// init and never mutated; every accessor hands out copies.
package bucket

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

// Names that are interpolated into SQL must match this.
var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FileStructure is the label whose rows feed the path-tree builder.
const FileStructure = "File Structure"

// Journal is the label read by the consolidated journal view.
const Journal = "Journal"

// Discriminator narrows a shared collection to one label.
// A zero Discriminator means the label owns the whole collection.
type Discriminator struct {
	Column string `yaml:"column"`
	Value  string `yaml:"value"`
}

// IsZero reports whether the discriminator is unset.
func (d Discriminator) IsZero() bool { return d.Column == "" }

// Bucket is one registry entry.
type Bucket struct {
	Label         string        `yaml:"label"`
	Collection    string        `yaml:"collection"`
	Discriminator Discriminator `yaml:"discriminator"`
	// Statuses is the finalized vocabulary used by the collection.
	Statuses []string `yaml:"statuses"`
}

type registryFile struct {
	Buckets []Bucket `yaml:"buckets"`
}

var (
	entries []Bucket
	byLabel map[string]int
)

func init() {
	b, err := parse(registryYAML)
	if err != nil {
		panic(fmt.Sprintf("bucket: invalid embedded registry: %v", err))
	}
	entries = b
	byLabel = make(map[string]int, len(b))
	for i, e := range b {
		byLabel[e.Label] = i
	}
}

// parse decodes and validates a registry document.
func parse(data []byte) ([]Bucket, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Buckets) == 0 {
		return nil, fmt.Errorf("no buckets defined")
	}

	seen := make(map[string]bool, len(f.Buckets))
	for _, b := range f.Buckets {
		if b.Label == "" {
			return nil, fmt.Errorf("bucket with empty label")
		}
		if seen[b.Label] {
			return nil, fmt.Errorf("duplicate label %q", b.Label)
		}
		seen[b.Label] = true
		if !identRe.MatchString(b.Collection) {
			return nil, fmt.Errorf("label %q: invalid collection %q", b.Label, b.Collection)
		}
		if !b.Discriminator.IsZero() {
			if !identRe.MatchString(b.Discriminator.Column) {
				return nil, fmt.Errorf("label %q: invalid discriminator column %q", b.Label, b.Discriminator.Column)
			}
			if b.Discriminator.Value == "" {
				return nil, fmt.Errorf("label %q: discriminator without value", b.Label)
			}
		}
	}
	return f.Buckets, nil
}

func clone(b Bucket) Bucket {
	b.Statuses = slices.Clone(b.Statuses)
	return b
}

// All returns every bucket in registry order.
func All() []Bucket {
	out := make([]Bucket, len(entries))
	for i, e := range entries {
		out[i] = clone(e)
	}
	return out
}

// Lookup returns the bucket registered under label.
func Lookup(label string) (Bucket, bool) {
	i, ok := byLabel[label]
	if !ok {
		return Bucket{}, false
	}
	return clone(entries[i]), true
}

// Labels returns every label in registry order.
func Labels() []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

// Collections returns the distinct destination collections in first-seen order.
func Collections() []string {
	var out []string
	for _, e := range entries {
		if !slices.Contains(out, e.Collection) {
			out = append(out, e.Collection)
		}
	}
	return out
}

// LabelFor resolves the label of a stored row from its collection and
// category. Falls back to the first label registered for the collection.
func LabelFor(collection, category string) string {
	fallback := ""
	for _, e := range entries {
		if e.Collection != collection {
			continue
		}
		if e.Discriminator.IsZero() {
			return e.Label
		}
		if e.Discriminator.Value == category {
			return e.Label
		}
		if fallback == "" {
			fallback = e.Label
		}
	}
	return fallback
}

// Category returns the category value a new row for this bucket must carry.
func (b Bucket) Category() string {
	return b.Discriminator.Value
}
