package gen

import (
	"reflect"
	"testing"
)

func TestTopoSort(t *testing.T) {
	tests := []struct {
		name string
		deps []int
		want []int
	}{
		{"empty", []int{}, []int{}},
		{"no deps", []int{NoDep, NoDep, NoDep}, []int{0, 1, 2}},
		{"chain", []int{2, NoDep, 1}, []int{1, 2, 0}},
		{"long chain", []int{1, 2, 3, NoDep}, []int{3, 2, 1, 0}},
		{"base first", []int{NoDep, 0, 1}, []int{0, 1, 2}},
		{"two trees", []int{NoDep, 3, NoDep, 2, 0}, []int{0, 2, 3, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TopoSort(tt.deps)
			if err != nil {
				t.Fatalf("TopoSort(%v) error: %v", tt.deps, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopoSort(%v) = %v, want %v", tt.deps, got, tt.want)
			}
		})
	}
}

func TestTopoSortOrderProperty(t *testing.T) {
	// Every dependency must appear strictly before its dependent, and
	// every slot exactly once.
	deps := []int{3, NoDep, 1, 2, 3, NoDep, 4}
	got, err := TopoSort(deps)
	if err != nil {
		t.Fatalf("TopoSort error: %v", err)
	}
	pos := make(map[int]int)
	for i, v := range got {
		if _, dup := pos[v]; dup {
			t.Fatalf("slot %d appears twice in %v", v, got)
		}
		pos[v] = i
	}
	if len(pos) != len(deps) {
		t.Fatalf("permutation %v does not cover all %d slots", got, len(deps))
	}
	for cons, prod := range deps {
		if prod == NoDep {
			continue
		}
		if pos[prod] >= pos[cons] {
			t.Errorf("dependency %d of %d not before it in %v", prod, cons, got)
		}
	}
}

func TestTopoSortDeterminism(t *testing.T) {
	deps := []int{2, NoDep, 1, NoDep, 3}
	first, err := TopoSort(deps)
	if err != nil {
		t.Fatalf("TopoSort error: %v", err)
	}
	second, err := TopoSort(deps)
	if err != nil {
		t.Fatalf("TopoSort error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("TopoSort not deterministic: %v vs %v", first, second)
	}
}

func TestTopoSortErrors(t *testing.T) {
	tests := []struct {
		name string
		deps []int
	}{
		{"self dependency", []int{0}},
		{"two-node cycle", []int{1, 0}},
		{"out of range", []int{5}},
		{"negative", []int{-7}},
		{"cycle behind a chain", []int{1, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := TopoSort(tt.deps); err == nil {
				t.Errorf("TopoSort(%v) succeeded, want error", tt.deps)
			}
		})
	}
}
