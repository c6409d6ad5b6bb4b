// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/registry"
)

// fakeSource serves metadata from an in-memory graph.
type fakeSource struct {
	skills map[string]*registry.SkillVersion
}

func newFakeSource() *fakeSource {
	return &fakeSource{skills: make(map[string]*registry.SkillVersion)}
}

func (f *fakeSource) add(name string, deps []string, mcpServers ...string) {
	f.skills[name] = &registry.SkillVersion{
		Name:         name,
		Version:      "1.0.0",
		Dependencies: deps,
		MCPServers:   mcpServers,
	}
}

func (f *fakeSource) GetSkill(_ context.Context, name, version string) (*registry.SkillVersion, error) {
	sv, ok := f.skills[name]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("Skill with name '%s' not found", name), nil)
	}
	if version != "" && version != sv.Version {
		return nil, errors.NewValidationError(fmt.Sprintf("Skill with name '%s' version '%s' not found", name, version), nil)
	}
	return sv, nil
}

func orderNames(plan *Plan) []string {
	names := make([]string, len(plan.Order))
	for i, node := range plan.Order {
		names[i] = node.Name
	}
	return names
}

func TestResolveChain(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("root", []string{"dep-a"})
	src.add("dep-a", []string{"dep-b"})
	src.add("dep-b", nil)

	plan, err := New(src).Resolve(context.Background(), "root")
	require.NoError(t, err)

	assert.Equal(t, []string{"dep-b", "dep-a", "root"}, orderNames(plan))
	assert.Equal(t, "root", plan.Root.Name)
	assert.Empty(t, plan.MCPServers)
}

func TestResolveSharedDependencyDeduplicated(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("root", []string{"dep-a", "dep-b"})
	src.add("dep-a", []string{"shared"})
	src.add("dep-b", []string{"shared"})
	src.add("shared", nil)

	plan, err := New(src).Resolve(context.Background(), "root")
	require.NoError(t, err)

	names := orderNames(plan)
	assert.Len(t, names, 4, "shared appears once")
	assert.Equal(t, "root", names[len(names)-1])
}

func TestResolveTopologicalProperty(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("root", []string{"a", "b", "c"})
	src.add("a", []string{"d"})
	src.add("b", []string{"d", "e"})
	src.add("c", nil)
	src.add("d", nil)
	src.add("e", nil)

	plan, err := New(src).Resolve(context.Background(), "root")
	require.NoError(t, err)

	position := make(map[string]int)
	for i, name := range orderNames(plan) {
		position[name] = i
	}
	var check func(n *Node)
	check = func(n *Node) {
		for _, child := range n.Children {
			assert.Less(t, position[child.Name], position[n.Name],
				"%s must precede its parent %s", child.Name, n.Name)
			check(child)
		}
	}
	check(plan.Root)
}

func TestResolveCycle(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("a", []string{"b"})
	src.add("b", []string{"c"})
	src.add("c", []string{"a"})

	_, err := New(src).Resolve(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
	assert.Contains(t, err.Error(), "cycle: a -> b -> c -> a")
}

func TestResolveSelfCycle(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("a", []string{"a"})

	_, err := New(src).Resolve(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle: a -> a")
}

func TestResolveMCPServerFiltering(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("skill-x", []string{"ao-basics", "mcp__pixel-art"})
	src.add("ao-basics", nil, "mcp__ao-tools")

	plan, err := New(src).Resolve(context.Background(), "skill-x")
	require.NoError(t, err)

	assert.Equal(t, []string{"ao-basics", "skill-x"}, orderNames(plan))
	assert.Equal(t, []string{"mcp__pixel-art", "mcp__ao-tools"}, plan.MCPServers)
}

func TestResolveDepthCap(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	for i := 0; i < 15; i++ {
		src.add(fmt.Sprintf("n%d", i), []string{fmt.Sprintf("n%d", i+1)})
	}
	src.add("n15", nil)

	_, err := New(src).Resolve(context.Background(), "n0")
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
	assert.Contains(t, err.Error(), "maximum dependency depth")
}

func TestResolveMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := New(newFakeSource()).Resolve(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestResolveMissingDependencySkipped(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("root", []string{"ghost", "dep-a"})
	src.add("dep-a", nil)

	plan, err := New(src).Resolve(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"dep-a", "root"}, orderNames(plan))
}

func TestResolveVersionPinHonored(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("root", []string{"dep-a@1.0.0"})
	src.add("dep-a", nil)

	plan, err := New(src).Resolve(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, plan.Root.Children, 1)
	assert.Equal(t, "1.0.0", plan.Root.Children[0].Version)

	// A pin the registry cannot satisfy skips the dependency.
	src.add("root", []string{"dep-a@9.9.9"})
	plan, err = New(src).Resolve(context.Background(), "root")
	require.NoError(t, err)
	assert.Empty(t, plan.Root.Children)
}

func TestResolveRootVersionPin(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.add("root", nil)

	plan, err := New(src).Resolve(context.Background(), "root@1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", plan.Root.Version)

	_, err = New(src).Resolve(context.Background(), "root@2.0.0")
	assert.Error(t, err)
}
