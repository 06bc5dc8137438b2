package service

import (
	"sort"

	"github.com/amadev/osprofiler/pkg/trace/model"
)

type TreeConstructorService struct {
}

func NewTreeConstructorService() *TreeConstructorService {
	return &TreeConstructorService{}
}

// BuildForest links nodes into trees through their parent ids and returns the roots.
// A node whose parent is unknown becomes a root. Roots and every children list are
// sorted by Started with a stable sort, so ties keep the order nodes were given in.
// Nodes that are their own ancestor are left out; their ids are returned.
func (tcs *TreeConstructorService) BuildForest(nodes []*model.Node) ([]*model.Node, []string) {
	index := make(map[string]*model.Node, len(nodes))
	for _, node := range nodes {
		index[node.TraceID] = node
		node.Children = make([]*model.Node, 0)
	}
	cyclic := findCyclicNodes(index, nodes)

	roots := make([]*model.Node, 0)
	var excluded []string
	for _, node := range nodes {
		if cyclic[node.TraceID] {
			excluded = append(excluded, node.TraceID)
			continue
		}
		parent, ok := index[node.ParentID]
		if ok && !cyclic[node.ParentID] {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	for _, node := range nodes {
		sortByStarted(node.Children)
	}
	sortByStarted(roots)
	return roots, excluded
}

const (
	unvisited = iota
	onPath
	resolved
)

// findCyclicNodes walks each parent chain once. A chain never takes more steps than
// there are nodes, so malformed input cannot loop forever.
func findCyclicNodes(index map[string]*model.Node, nodes []*model.Node) map[string]bool {
	cyclic := make(map[string]bool)
	state := make(map[string]int, len(nodes))
	for _, start := range nodes {
		if state[start.TraceID] != unvisited {
			continue
		}
		var path []string
		traceID := start.TraceID
		for steps := 0; steps <= len(nodes); steps++ {
			node, ok := index[traceID]
			if !ok || state[traceID] == resolved {
				break
			}
			if state[traceID] == onPath {
				for i := len(path) - 1; i >= 0; i-- {
					cyclic[path[i]] = true
					if path[i] == traceID {
						break
					}
				}
				break
			}
			state[traceID] = onPath
			path = append(path, traceID)
			traceID = node.ParentID
		}
		for _, visited := range path {
			state[visited] = resolved
		}
	}
	return cyclic
}

func sortByStarted(nodes []*model.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Info.Started < nodes[j].Info.Started
	})
}
