package formula

import "github.com/vogtb/go-spreadsheet/packages/spreadsheet"

// DependencyNode represents a cell in the dependency graph
type DependencyNode struct {
	Address spreadsheet.CellAddress // address of *THIS* node

	// cell-to-cell dependencies
	CellPrecedents map[spreadsheet.CellAddress]*DependencyNode // cells this cell depends on
	CellDependents map[spreadsheet.CellAddress]*DependencyNode // cells that depend on this cell

	// range dependencies (only for formula cells that read ranges)
	RangePrecedents map[RangeAddress]struct{}
}

// DependencyGraph records, for every evaluated formula cell, the cells and
// ranges it read. edges are discovered while evaluating rather than by
// inspecting formula text, so a formula is re-recorded each time it is
// evaluated.
type DependencyGraph struct {
	nodes          map[spreadsheet.CellAddress]*DependencyNode           // all nodes in the graph
	rangeObservers map[RangeAddress]map[spreadsheet.CellAddress]struct{} // range -> cells that read it
	volatileCells  map[spreadsheet.CellAddress]struct{}                  // cells with volatile functions (always recalculate)
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:          make(map[spreadsheet.CellAddress]*DependencyNode),
		rangeObservers: make(map[RangeAddress]map[spreadsheet.CellAddress]struct{}),
		volatileCells:  make(map[spreadsheet.CellAddress]struct{}),
	}
}

// GetOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) GetOrCreateNode(addr spreadsheet.CellAddress) *DependencyNode {
	if node, exists := dg.nodes[addr]; exists {
		return node
	}

	node := &DependencyNode{
		Address:         addr,
		CellPrecedents:  make(map[spreadsheet.CellAddress]*DependencyNode),
		CellDependents:  make(map[spreadsheet.CellAddress]*DependencyNode),
		RangePrecedents: make(map[RangeAddress]struct{}),
	}
	dg.nodes[addr] = node
	return node
}

// GetNode retrieves a node if it exists
func (dg *DependencyGraph) GetNode(addr spreadsheet.CellAddress) (*DependencyNode, bool) {
	node, exists := dg.nodes[addr]
	return node, exists
}

// RemoveNode removes a node and all its dependencies
func (dg *DependencyGraph) RemoveNode(addr spreadsheet.CellAddress) bool {
	node, exists := dg.nodes[addr]
	if !exists {
		return false
	}

	// remove this node from all its precedents' dependent lists
	for precedentAddr, precedentNode := range node.CellPrecedents {
		delete(precedentNode.CellDependents, addr)
		dg.cleanupNodeIfEmpty(precedentAddr)
	}

	// remove this node from all its dependents' precedent lists. dependents
	// are formula cells and keep their nodes
	for _, dependentNode := range node.CellDependents {
		delete(dependentNode.CellPrecedents, addr)
	}

	for rangeAddr := range node.RangePrecedents {
		dg.removeObserver(rangeAddr, addr)
	}

	delete(dg.volatileCells, addr)
	delete(dg.nodes, addr)

	return true
}

// cleanupNodeIfEmpty removes a node once nothing connects to it
func (dg *DependencyGraph) cleanupNodeIfEmpty(addr spreadsheet.CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}

	if len(node.CellPrecedents) > 0 ||
		len(node.CellDependents) > 0 ||
		len(node.RangePrecedents) > 0 {
		return
	}
	if _, volatile := dg.volatileCells[addr]; volatile {
		return
	}

	delete(dg.nodes, addr)
}

// AddCellDependency adds a cell-to-cell dependency (from depends on to)
func (dg *DependencyGraph) AddCellDependency(from, to spreadsheet.CellAddress) {
	fromNode := dg.GetOrCreateNode(from)
	toNode := dg.GetOrCreateNode(to)

	fromNode.CellPrecedents[to] = toNode
	toNode.CellDependents[from] = fromNode
}

// RemoveCellDependency removes a cell-to-cell dependency
func (dg *DependencyGraph) RemoveCellDependency(from, to spreadsheet.CellAddress) bool {
	fromNode, fromExists := dg.nodes[from]
	toNode, toExists := dg.nodes[to]

	if !fromExists || !toExists {
		return false
	}

	delete(fromNode.CellPrecedents, to)
	delete(toNode.CellDependents, from)

	dg.cleanupNodeIfEmpty(from)
	dg.cleanupNodeIfEmpty(to)

	return true
}

// AddRangeDependency adds a cell-to-range dependency (from depends on range)
func (dg *DependencyGraph) AddRangeDependency(from spreadsheet.CellAddress, rangeAddr RangeAddress) {
	node := dg.GetOrCreateNode(from)
	node.RangePrecedents[rangeAddr] = struct{}{}

	if dg.rangeObservers[rangeAddr] == nil {
		dg.rangeObservers[rangeAddr] = make(map[spreadsheet.CellAddress]struct{})
	}
	dg.rangeObservers[rangeAddr][from] = struct{}{}
}

func (dg *DependencyGraph) removeObserver(rangeAddr RangeAddress, addr spreadsheet.CellAddress) {
	if observers, exists := dg.rangeObservers[rangeAddr]; exists {
		delete(observers, addr)
		if len(observers) == 0 {
			delete(dg.rangeObservers, rangeAddr)
		}
	}
}

// ClearDependencies forgets what a cell read, keeping the cells that read
// it. called before a formula is re-evaluated.
func (dg *DependencyGraph) ClearDependencies(addr spreadsheet.CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}

	for precedentAddr, precedentNode := range node.CellPrecedents {
		delete(node.CellPrecedents, precedentAddr)
		delete(precedentNode.CellDependents, addr)
		dg.cleanupNodeIfEmpty(precedentAddr)
	}

	for rangeAddr := range node.RangePrecedents {
		delete(node.RangePrecedents, rangeAddr)
		dg.removeObserver(rangeAddr, addr)
	}

	delete(dg.volatileCells, addr)
	dg.cleanupNodeIfEmpty(addr)
}

// IsInRange checks if a cell is within a range
func (dg *DependencyGraph) IsInRange(cell spreadsheet.CellAddress, r RangeAddress) bool {
	return r.Contains(cell)
}

// GetDirectDependents returns cells directly depending on this cell
func (dg *DependencyGraph) GetDirectDependents(addr spreadsheet.CellAddress) []spreadsheet.CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}

	result := make([]spreadsheet.CellAddress, 0, len(node.CellDependents))
	for dependentAddr := range node.CellDependents {
		result = append(result, dependentAddr)
	}
	return result
}

// GetDirectPrecedents returns cells this cell directly depends on
func (dg *DependencyGraph) GetDirectPrecedents(addr spreadsheet.CellAddress) []spreadsheet.CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}

	result := make([]spreadsheet.CellAddress, 0, len(node.CellPrecedents))
	for precedentAddr := range node.CellPrecedents {
		result = append(result, precedentAddr)
	}
	return result
}

// GetRangePrecedents returns ranges this cell depends on
func (dg *DependencyGraph) GetRangePrecedents(addr spreadsheet.CellAddress) []RangeAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}

	result := make([]RangeAddress, 0, len(node.RangePrecedents))
	for rangeAddr := range node.RangePrecedents {
		result = append(result, rangeAddr)
	}
	return result
}

// GetAffectedCells returns all cells whose results are stale once a cell
// changes: direct and transitive dependents, plus cells observing a range
// the cell lies in, and their dependents in turn.
func (dg *DependencyGraph) GetAffectedCells(addr spreadsheet.CellAddress) []spreadsheet.CellAddress {
	affected := make(map[spreadsheet.CellAddress]struct{})
	pending := []spreadsheet.CellAddress{addr}

	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		var next []spreadsheet.CellAddress
		if node, exists := dg.nodes[current]; exists {
			for dependentAddr := range node.CellDependents {
				next = append(next, dependentAddr)
			}
		}
		for rangeAddr, observers := range dg.rangeObservers {
			if !rangeAddr.Contains(current) {
				continue
			}
			for observerAddr := range observers {
				next = append(next, observerAddr)
			}
		}

		for _, n := range next {
			if _, seen := affected[n]; seen || n == addr {
				continue
			}
			affected[n] = struct{}{}
			pending = append(pending, n)
		}
	}

	result := make([]spreadsheet.CellAddress, 0, len(affected))
	for affectedAddr := range affected {
		result = append(result, affectedAddr)
	}
	return result
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of observed ranges
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[spreadsheet.CellAddress]*DependencyNode)
	dg.rangeObservers = make(map[RangeAddress]map[spreadsheet.CellAddress]struct{})
	dg.volatileCells = make(map[spreadsheet.CellAddress]struct{})
}

// MarkVolatile marks a cell as containing volatile functions
func (dg *DependencyGraph) MarkVolatile(addr spreadsheet.CellAddress) {
	dg.GetOrCreateNode(addr)
	dg.volatileCells[addr] = struct{}{}
}

// IsVolatile checks if a cell contains volatile functions
func (dg *DependencyGraph) IsVolatile(addr spreadsheet.CellAddress) bool {
	_, isVolatile := dg.volatileCells[addr]
	return isVolatile
}

// GetVolatileCells returns all cells marked as volatile
func (dg *DependencyGraph) GetVolatileCells() []spreadsheet.CellAddress {
	result := make([]spreadsheet.CellAddress, 0, len(dg.volatileCells))
	for addr := range dg.volatileCells {
		result = append(result, addr)
	}
	return result
}
