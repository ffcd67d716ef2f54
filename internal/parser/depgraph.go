package parser

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// #region types
// DepGraph links each defined name to the defined names its body uses.
type DepGraph struct {
	Edges  map[string][]string
	Origin map[string]*ast.Definition
	Block  map[string]ast.BlockTag
	order  []string
}

// #endregion types

// #region build
// BuildDepGraph collects definitions from every block except Evidence.
func BuildDepGraph(doc *ast.Document) *DepGraph {
	g := &DepGraph{
		Edges:  map[string][]string{},
		Origin: map[string]*ast.Definition{},
		Block:  map[string]ast.BlockTag{},
	}
	for _, b := range doc.Blocks {
		if b.Tag == ast.Evidence {
			continue
		}
		for _, s := range b.Statements {
			d, ok := s.(*ast.Definition)
			if !ok {
				continue
			}
			if _, seen := g.Origin[d.Name]; !seen {
				g.Origin[d.Name] = d
				g.Block[d.Name] = b.Tag
				g.order = append(g.order, d.Name)
			}
		}
	}
	for _, name := range g.order {
		g.Edges[name] = nil
	}
	for _, b := range doc.Blocks {
		if b.Tag == ast.Evidence {
			continue
		}
		for _, s := range b.Statements {
			d, ok := s.(*ast.Definition)
			if !ok {
				continue
			}
			for _, ref := range ast.FreeIdents(d.Value) {
				if _, defined := g.Origin[ref]; defined {
					g.Edges[d.Name] = appendUnique(g.Edges[d.Name], ref)
				}
			}
		}
	}
	return g
}

func appendUnique(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}

// #endregion build

// #region walk
// Cycle returns the first dependency cycle found, as a closed path
// (first element repeated at the end), or nil.
func (g *DepGraph) Cycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.order))
	var stack []string
	var found []string

	var visit func(string) bool
	visit = func(n string) bool {
		color[n] = grey
		stack = append(stack, n)
		for _, m := range g.Edges[n] {
			switch color[m] {
			case grey:
				for i, s := range stack {
					if s == m {
						found = append(append([]string{}, stack[i:]...), m)
						return true
					}
				}
			case white:
				if visit(m) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}
	for _, n := range g.order {
		if color[n] == white && visit(n) {
			return found
		}
	}
	return nil
}

// TopoOrder returns defined names with dependencies first. It assumes the
// graph is acyclic.
func (g *DepGraph) TopoOrder() []string {
	done := map[string]bool{}
	var out []string
	var visit func(string)
	visit = func(n string) {
		if done[n] {
			return
		}
		done[n] = true
		for _, m := range g.Edges[n] {
			visit(m)
		}
		out = append(out, n)
	}
	for _, n := range g.order {
		visit(n)
	}
	return out
}

func checkCycles(doc *ast.Document) error {
	g := BuildDepGraph(doc)
	cycle := g.Cycle()
	if cycle == nil {
		return nil
	}
	head := g.Origin[cycle[0]]
	return &Error{
		Kind:   KindCyclicDefinition,
		Offset: head.Offset,
		Block:  g.Block[cycle[0]],
		Msg:    fmt.Sprintf("definition cycle %s", strings.Join(cycle, " → ")),
	}
}

// #endregion walk
