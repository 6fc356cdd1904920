package structure

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaths_DeterminismAndDedup(t *testing.T) {
	p := NewPipeline(nil)

	got := p.BuildPaths([]string{"a/b.ts", "a/b.ts", "a/c/d.md"})

	want := &Structure{
		Root: &Node{Name: "/", Type: TypeDir, Children: []*Node{
			{Name: "a", Type: TypeDir, Children: []*Node{
				{Name: "b.ts", Type: TypeFile},
				{Name: "c", Type: TypeDir, Children: []*Node{
					{Name: "d.md", Type: TypeFile},
				}},
			}},
		}},
		Paths: []string{"a/b.ts", "a/c/d.md"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildPaths mismatch (-want +got):\n%s", diff)
	}

	// Same input in another order yields the same artifact
	again := p.BuildPaths([]string{"a/c/d.md", "a/b.ts", "./a/b.ts"})
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("BuildPaths not deterministic (-first +second):\n%s", diff)
	}
}

func TestTreeInsert_FindOrCreate(t *testing.T) {
	tree := NewTree(Normalizer{})

	assert.True(t, tree.Insert("src/lib/db.go"))
	assert.True(t, tree.Insert("src/lib/cache.go"))
	assert.False(t, tree.Insert("src/lib/db.go"))
	assert.False(t, tree.Insert("/src//lib/db.go"))

	require.Len(t, tree.Root.Children, 1)
	src := tree.Root.Children[0]
	require.Len(t, src.Children, 1)
	assert.Len(t, src.Children[0].Children, 2)
}

func TestTreeInsert_FirstWriteWinsType(t *testing.T) {
	// Terminal first: the file type sticks when a later path descends through it
	tree := NewTree(Normalizer{})
	tree.Insert("docs/v1.2")
	tree.Insert("docs/v1.2/notes.md")

	node := find(tree, "docs/v1.2")
	require.NotNil(t, node)
	assert.Equal(t, TypeFile, node.Type)
	require.NotNil(t, find(tree, "docs/v1.2/notes.md"))

	// Intermediate first: stays a dir even when later inserted as a terminal
	tree = NewTree(Normalizer{})
	tree.Insert("build/out.d/log.txt")
	tree.Insert("build/out.d")

	node = find(tree, "build/out.d")
	require.NotNil(t, node)
	assert.Equal(t, TypeDir, node.Type)
}

func TestTreeInsert_EmptyPath(t *testing.T) {
	tree := NewTree(Normalizer{})
	assert.False(t, tree.Insert(""))
	assert.False(t, tree.Insert("///"))
	assert.Empty(t, tree.Root.Children)
}

func TestPipelineBuild_FromConventionText(t *testing.T) {
	p := NewPipeline([]string{"home/claude/projects/"})

	texts := []string{
		"Project layout:\n- `src/app.ts`\n- src/lib/db.go\n\nKeep handlers thin.",
		"1. /home/claude/projects/src/app.ts\n2) tests\\unit\\db_test.go",
		"README.md",
	}
	s := p.Build(texts)

	assert.Equal(t, []string{"src/app.ts", "src/lib/db.go", "tests/unit/db_test.go"}, s.Paths)
	require.NotNil(t, s.Root)
	assert.Equal(t, RootName, s.Root.Name)
	assert.Len(t, s.Root.Children, 2)
}

func TestStructure_JSONShape(t *testing.T) {
	s := NewPipeline(nil).BuildPaths([]string{"a/b.ts"})
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"root": {"name": "/", "type": "dir", "children": [
			{"name": "a", "type": "dir", "children": [{"name": "b.ts", "type": "file"}]}
		]},
		"paths": ["a/b.ts"]
	}`, string(data))
}

// find walks the tree along a slash-separated path.
func find(tree *Tree, path string) *Node {
	cur := tree.Root
	for _, s := range strings.Split(tree.norm.Normalize(path), "/") {
		if s == "" {
			continue
		}
		cur = cur.child(s)
		if cur == nil {
			return nil
		}
	}
	return cur
}
