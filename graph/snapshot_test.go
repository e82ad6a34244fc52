package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes() []Node {
	return []Node{
		{ID: "spec-demo", Name: "demo", Type: TypeSpec, Status: "active"},
		{ID: "wf-deploy", Name: "deploy", Type: TypeWorkflow, Status: "running"},
		{ID: "res-db", Name: "postgres", Type: TypeResource, Status: "provisioning",
			Metadata: Metadata{Provider: "aws", ResourceType: "postgres"}},
	}
}

func testEdges() []Edge {
	return []Edge{
		{ID: "e1", Source: "spec-demo", Target: "wf-deploy", Relationship: "contains"},
		{ID: "e2", Source: "wf-deploy", Target: "res-db", Relationship: "provisions"},
	}
}

func TestValidateDuplicateNodeID(t *testing.T) {
	snap := NewSnapshot([]Node{{ID: "a"}, {ID: "a"}}, nil, time.Now())
	_, err := snap.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestValidateCountsDanglingEdges(t *testing.T) {
	edges := append(testEdges(), Edge{ID: "e3", Source: "wf-deploy", Target: "ghost"})
	snap := NewSnapshot(testNodes(), edges, time.Now())

	dangling, err := snap.Validate()
	require.NoError(t, err)
	assert.Equal(t, 1, dangling)

	resolvable := snap.ResolvableEdges()
	assert.Len(t, resolvable, 2)
	for _, e := range resolvable {
		assert.NotEqual(t, "ghost", e.Target)
	}
}

func TestApplyPatchKnownNode(t *testing.T) {
	base := NewSnapshot(testNodes(), testEdges(), time.Now())
	next := base.ApplyPatch("wf-deploy", "failed", time.Now())

	require.NotSame(t, base, next)
	assert.Equal(t, base.Generation+1, next.Generation)

	patched, ok := next.NodeByID("wf-deploy")
	require.True(t, ok)
	assert.Equal(t, "failed", patched.Status)

	// Patch precision: everything else untouched, base unchanged.
	orig, _ := base.NodeByID("wf-deploy")
	assert.Equal(t, "running", orig.Status)
	for _, n := range next.Nodes {
		if n.ID == "wf-deploy" {
			continue
		}
		want, _ := base.NodeByID(n.ID)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, base.Edges, next.Edges)
}

func TestApplyPatchUnknownNodeIsNoOp(t *testing.T) {
	base := NewSnapshot(testNodes(), testEdges(), time.Now())
	next := base.ApplyPatch("ghost", "failed", time.Now())

	assert.Same(t, base, next)
	assert.Len(t, next.Nodes, 3)
	assert.Equal(t, base.Generation, next.Generation)
}

func TestChangedSince(t *testing.T) {
	base := NewSnapshot(testNodes(), testEdges(), time.Now())
	assert.Empty(t, base.ChangedSince(), "base snapshot has no prior generation")

	next := base.ApplyPatch("res-db", "failed", time.Now())
	changed := next.ChangedSince()
	assert.Equal(t, map[string]bool{"res-db": true}, changed)

	// One generation back only: a further patch forgets the older diff.
	third := next.ApplyPatch("wf-deploy", "succeeded", time.Now())
	changed = third.ChangedSince()
	assert.Equal(t, map[string]bool{"wf-deploy": true}, changed)
}

func TestReplaceTracksNewNodesAsChanged(t *testing.T) {
	base := NewSnapshot(testNodes(), testEdges(), time.Now())
	nodes := append(testNodes(), Node{ID: "res-cache", Name: "redis", Type: TypeResource, Status: "requested"})
	next := base.Replace(nodes, testEdges(), time.Now())

	changed := next.ChangedSince()
	assert.True(t, changed["res-cache"], "node absent from previous generation counts as changed")
	assert.False(t, changed["spec-demo"])
}

func TestStats(t *testing.T) {
	snap := NewSnapshot(testNodes(), testEdges(), time.Now())
	assert.Equal(t, Stats{TotalNodes: 3, TotalEdges: 2}, snap.Stats())
}
