package tree

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huzeyfeaktas/python-editor/internal/storage"
)

func TestResolve(t *testing.T) {
	root := storage.Node{ID: "p", Name: "proj", Path: "proj", Kind: storage.KindProject}
	src := storage.Node{ID: "s", Name: "src", Path: "proj/src", ParentID: "p", Kind: storage.KindFolder}
	lookup := MapLookup([]storage.Node{root, src})

	tests := []struct {
		name string
		node storage.Node
		want string
	}{
		{"no parent", storage.Node{Name: "solo.py"}, "solo.py"},
		{"child of root", storage.Node{Name: "main.py", ParentID: "p"}, "proj/main.py"},
		{"grandchild", storage.Node{Name: "a.py", ParentID: "s"}, "proj/src/a.py"},
		{"dangling parent", storage.Node{Name: "lost.py", ParentID: "gone"}, "lost.py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(&tt.node, lookup)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Resolve(&tt.node, lookup), "resolve must be idempotent")
		})
	}
}

func TestResolveNilLookup(t *testing.T) {
	n := storage.Node{Name: "x", ParentID: "p"}
	assert.Equal(t, "x", Resolve(&n, nil))
}

// Builds random parent chains of depth 0-10 and checks that every node's
// path is the slash-joined names from the top of its chain.
func TestResolveRandomChains(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		depth := rng.Intn(11)
		var chain []storage.Node
		var names []string

		for i := 0; i <= depth; i++ {
			n := storage.Node{
				ID:   fmt.Sprintf("n%d", i),
				Name: fmt.Sprintf("d%d_%d", i, rng.Intn(1000)),
				Kind: storage.KindFolder,
			}
			if i == 0 {
				n.Kind = storage.KindProject
			} else {
				n.ParentID = chain[i-1].ID
			}
			n.Path = Resolve(&n, MapLookup(chain))
			chain = append(chain, n)
			names = append(names, n.Name)

			assert.Equal(t, strings.Join(names, "/"), n.Path, "trial %d depth %d", trial, i)
		}
	}
}
