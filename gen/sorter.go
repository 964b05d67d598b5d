package gen

import "fmt"

// NoDep marks a slot with no dependency in TopoSort input.
const NoDep = -1

// TopoSort orders slots so that every dependency appears before its
// dependent. deps[i] is the index slot i depends on, or NoDep; each slot
// has at most one dependency, so the graph is a forest of chains and the
// order is fully determined once roots are walked in ascending index order.
//
// The walk keeps its own chain slice instead of recursing, so chain length
// is bounded by memory, not stack depth. A cycle is reported when a walk
// leads back to the slot it started from, or revisits any slot already on
// the current chain. The two cases are not symmetric: the first names the
// starting slot in its error, the second the slot the chain revisits.
func TopoSort(deps []int) ([]int, error) {
	perm := make([]int, 0, len(deps))
	emitted := make([]bool, len(deps))
	chain := make([]int, 0, len(deps))
	onChain := make([]bool, len(deps))

	for root := range deps {
		chain = chain[:0]
		cons := root
		for !emitted[cons] {
			prod := deps[cons]
			chain = append(chain, cons)
			onChain[cons] = true
			if prod == NoDep {
				break
			}
			if prod < 0 {
				return nil, fmt.Errorf("gen: negative value in deps: deps[%d] = %d", cons, prod)
			}
			if prod >= len(deps) {
				return nil, fmt.Errorf("gen: value in deps exceeds its length: deps[%d] = %d >= %d",
					cons, prod, len(deps))
			}
			if prod == cons {
				return nil, fmt.Errorf("gen: trivial cyclic dependency in deps: deps[%d] = %d", cons, prod)
			}
			if prod == root {
				return nil, fmt.Errorf("gen: cyclic dependency in deps: following dependencies from %d leads back to %d",
					root, root)
			}
			if onChain[prod] {
				// A cycle among intermediate slots: the walk would
				// never leave it.
				return nil, fmt.Errorf("gen: cyclic dependency in deps: following dependencies from %d revisits %d",
					root, prod)
			}
			cons = prod
		}
		// Emit the chain producer-first.
		for i := len(chain) - 1; i >= 0; i-- {
			perm = append(perm, chain[i])
			emitted[chain[i]] = true
			onChain[chain[i]] = false
		}
	}
	if len(perm) != len(deps) {
		panic("gen: TopoSort lost slots")
	}
	return perm, nil
}
