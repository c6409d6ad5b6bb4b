// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package resolver walks a skill's dependency graph and produces a
// topologically ordered install plan.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/skills"
)

const (
	// MaxDepth caps the dependency path length from the root.
	MaxDepth = 10
	// fetchConcurrency bounds concurrent metadata fetches within one level.
	fetchConcurrency = 8
)

// MetadataSource resolves a skill name (optionally pinned) to its registered
// metadata. An empty version means latest.
type MetadataSource interface {
	GetSkill(ctx context.Context, name, version string) (*registry.SkillVersion, error)
}

// Node is one vertex of an install plan.
type Node struct {
	Name    string
	Version string
	Depth   int
	// Skill is the registry metadata the node resolved to.
	Skill    *registry.SkillVersion
	Children []*Node
}

// Plan is the resolver's output: the dependency tree plus a flat order with
// every child preceding its parent. The root is always last.
type Plan struct {
	Root  *Node
	Order []*Node
	// MCPServers lists externally provisioned servers referenced anywhere in
	// the tree, in discovery order, deduplicated. They are reported, never
	// installed.
	MCPServers []string
}

// Resolver resolves install plans. A Resolver serves one Resolve call at a
// time; the mutex guards the traversal sets against the prefetch goroutines,
// not against concurrent resolves.
type Resolver struct {
	source MetadataSource

	// mu serializes the traversal bookkeeping; metadata prefetches run
	// outside it.
	mu       sync.Mutex
	fetched  map[string]*registry.SkillVersion
	visited  map[string]bool
	visiting []string
	mcp      []string
	order    []*Node
}

// New creates a resolver over a metadata source, typically the registry
// client whose LRU cache memoizes lookups across resolve calls.
func New(source MetadataSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve builds the install plan for a root reference ("name" or
// "name@version"). Dependencies always resolve to the latest registered
// version unless the parent pins them explicitly.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Plan, error) {
	r.mu.Lock()
	r.fetched = make(map[string]*registry.SkillVersion)
	r.visited = make(map[string]bool)
	r.visiting = nil
	r.mcp = nil
	r.order = nil
	r.mu.Unlock()

	name, version := registry.SplitNameVersion(ref)
	root, err := r.visit(ctx, name, version, 0)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.NewDependencyError(fmt.Sprintf("could not resolve %q", ref), nil)
	}

	return &Plan{Root: root, Order: r.order, MCPServers: r.mcp}, nil
}

// visit resolves one vertex depth-first. It returns a nil node for vertices
// that are skipped: already-resolved shared dependencies and unresolvable
// non-root dependencies.
func (r *Resolver) visit(ctx context.Context, name, version string, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, errors.NewDependencyError(
			fmt.Sprintf("maximum dependency depth of %d exceeded at %q", MaxDepth, name), nil)
	}

	r.mu.Lock()
	for _, v := range r.visiting {
		if v == name {
			cycle := append(append([]string{}, r.visiting...), name)
			r.mu.Unlock()
			return nil, errors.NewDependencyError("cycle: "+strings.Join(cycle, " -> "), nil)
		}
	}
	if r.visited[name] {
		r.mu.Unlock()
		return nil, nil
	}
	r.visiting = append(r.visiting, name)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.visiting = r.visiting[:len(r.visiting)-1]
		r.mu.Unlock()
	}()

	sv, err := r.fetch(ctx, name, version)
	if err != nil {
		if errors.IsCancelled(err) || depth == 0 {
			return nil, err
		}
		// A vanished dependency should not fail the whole install.
		logger.Warnf("skipping unresolvable dependency %q: %v", name, err)
		return nil, nil
	}

	node := &Node{Name: sv.Name, Version: sv.Version, Depth: depth, Skill: sv}

	deps, mcpServers := splitDependencies(sv.Dependencies, sv.MCPServers)
	r.noteMCPServers(mcpServers)
	r.prefetch(ctx, deps, depth+1)

	for _, dep := range deps {
		depName, depVersion := registry.SplitNameVersion(dep)
		child, err := r.visit(ctx, depName, depVersion, depth+1)
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}

	// Post-order emission: every child is already in the order, so parents
	// always come after their dependencies.
	r.mu.Lock()
	r.visited[name] = true
	r.order = append(r.order, node)
	r.mu.Unlock()

	return node, nil
}

// splitDependencies filters "mcp__"-prefixed entries out of a dependency list
// and merges them with the manifest's declared servers.
func splitDependencies(dependencies, declared []string) (deps, mcpServers []string) {
	for _, dep := range dependencies {
		name, _ := registry.SplitNameVersion(dep)
		if skills.IsMCPServer(name) {
			mcpServers = append(mcpServers, name)
			continue
		}
		deps = append(deps, dep)
	}
	return deps, append(mcpServers, declared...)
}

func (r *Resolver) noteMCPServers(servers []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, server := range servers {
		seen := false
		for _, existing := range r.mcp {
			if existing == server {
				seen = true
				break
			}
		}
		if !seen {
			r.mcp = append(r.mcp, server)
		}
	}
}

// prefetch warms the metadata map for a frontier of sibling dependencies.
// Fetches run concurrently; the traversal sets stay the sequencing ground
// truth and are only touched by the sequential DFS.
func (r *Resolver) prefetch(ctx context.Context, deps []string, depth int) {
	if len(deps) < 2 || depth > MaxDepth {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(fetchConcurrency)

	for _, dep := range deps {
		name, version := registry.SplitNameVersion(dep)

		r.mu.Lock()
		_, have := r.fetched[name]
		done := r.visited[name]
		r.mu.Unlock()
		if have || done {
			continue
		}

		group.Go(func() error {
			sv, err := r.source.GetSkill(groupCtx, name, version)
			if err != nil {
				// The sequential visit surfaces or skips the failure.
				return nil
			}
			r.mu.Lock()
			r.fetched[name] = sv
			r.mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
}

func (r *Resolver) fetch(ctx context.Context, name, version string) (*registry.SkillVersion, error) {
	r.mu.Lock()
	sv, ok := r.fetched[name]
	r.mu.Unlock()
	if ok && (version == "" || sv.Version == version) {
		return sv, nil
	}

	sv, err := r.source.GetSkill(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, errors.NewDependencyError(fmt.Sprintf("skill %q not found in registry", name), nil)
	}

	r.mu.Lock()
	r.fetched[name] = sv
	r.mu.Unlock()
	return sv, nil
}
