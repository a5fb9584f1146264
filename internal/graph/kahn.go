package graph

import (
	"container/list"
	"errors"
	"fmt"
	"strings"
)

// ProcessingQueue wraps a list-based queue for Kahn's algorithm processing.
// It holds nodes that are ready to be processed (have in-degree of 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// Enqueue adds a node to the back of the queue.
func (pq *ProcessingQueue) Enqueue(node string) {
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the node at the front of the queue.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of nodes in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// calculateInDegrees computes the number of incoming edges for each node.
// This is the first step of Kahn's algorithm for topological sorting.
func (g *Graph) calculateInDegrees() map[string]int {
	inDegree := make(map[string]int)

	for _, name := range g.nodes {
		inDegree[name] = 0
	}

	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// initializeQueue creates a processing queue populated with all nodes that
// have in-degree of 0. Nodes are enqueued in schema definition order so the
// resulting topological order is deterministic.
func (g *Graph) initializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue()

	for _, name := range g.nodes {
		if inDegree[name] == 0 {
			pq.Enqueue(name)
		}
	}

	return pq
}

// ErrCycleDetected is returned when the dependency graph contains a cycle,
// making topological sorting impossible.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of nodes in the graph
	ProcessedNodes    int      // Number of nodes successfully processed
	UnprocessedNodes  []string // Nodes that couldn't be processed (part of or blocked by cycle)
	CycleParticipants []string // Nodes that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError represents a cycle detection error with detailed information
// about which tables are involved and which are blocked by the cycle.
type CycleError struct {
	Info *CycleInfo
}

// Error implements the error interface with a descriptive message that
// includes the tables in the cycle and any tables blocked by the cycle.
func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d tables could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nTables in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}

		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}

		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nTables blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about any nodes that couldn't be processed. If all nodes are processed,
// returns nil (no cycle).
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.calculateInDegrees()
	queue := g.initializeQueue(inDegree)

	processed := make(map[string]bool)

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(processed) == len(g.nodes) {
		return nil // No cycle detected
	}

	var unprocessed []string
	for _, name := range g.nodes {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
		}
	}

	unprocessedSet := make(map[string]bool)
	for _, node := range unprocessed {
		unprocessedSet[node] = true
	}

	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.findCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the dependency graph contains a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// findCyclePath finds the actual path that forms a cycle starting from the
// given node. Returns the ordered list of nodes forming the cycle (including
// the start node at both ends).
func (g *Graph) findCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

// dfsFindPath performs DFS to find a path back to the target node.
// Returns true if a path is found, and populates the path slice via pointer.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}

		// Found path back to target - append target to complete the cycle
		if child == target {
			*path = append(*path, target)
			return true
		}

		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set. Uses DFS with path tracking.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}

	if visited[current] {
		return false
	}
	if !allowedNodes[current] {
		return false
	}

	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}

// TopologicalSort returns tables in topological order using Kahn's algorithm.
// For every foreign-key edge between two selected tables, the referenced
// table appears before the referencing one. The order is deterministic for a
// given schema. Returns a CycleError if the graph contains a cycle through
// two or more distinct tables.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := g.calculateInDegrees()
	queue := g.initializeQueue(inDegree)

	var result []string
	processed := 0

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()

		result = append(result, node)
		processed++

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if processed != len(g.nodes) {
		cycleInfo := g.DetectIncompleteProcessing()
		return nil, &CycleError{Info: cycleInfo}
	}

	return result, nil
}

// LoadOrder returns the order in which tables should be created and loaded.
// Referenced tables come before referencing tables so foreign-key
// constraints are satisfiable.
func (g *Graph) LoadOrder() ([]string, error) {
	return g.TopologicalSort()
}

// DropOrder returns the order in which tables should be dropped.
// This is the exact reverse of the load order.
func (g *Graph) DropOrder() ([]string, error) {
	loadOrder, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	dropOrder := make([]string, len(loadOrder))
	for i, table := range loadOrder {
		dropOrder[len(loadOrder)-1-i] = table
	}

	return dropOrder, nil
}

// Validate checks the graph for cycles. This should be called after building
// the graph to fail fast at startup rather than discovering issues during
// processing. Returns a CycleError if the graph contains cycles, nil otherwise.
func (g *Graph) Validate() error {
	cycleInfo := g.DetectIncompleteProcessing()
	if cycleInfo != nil {
		return &CycleError{Info: cycleInfo}
	}

	return nil
}
