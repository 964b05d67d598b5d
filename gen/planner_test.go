package gen

import (
	"strings"
	"testing"

	"github.com/omsandippatil/clif/ast"
)

func TestSortTypeInitsBaseBeforeDerived(t *testing.T) {
	// Chain of three: Derived2 -> Derived -> Base, declared worst-first.
	types := []ast.TypeInit{
		{CppName: "pyDerived2::wrapper_Type", WrappedBase: "pyDerived::wrapper_Type"},
		{CppName: "pyDerived::wrapper_Type", WrappedBase: "pyBase::wrapper_Type"},
		{CppName: "pyBase::wrapper_Type"},
	}
	sorted, err := SortTypeInits(types)
	if err != nil {
		t.Fatalf("SortTypeInits error: %v", err)
	}
	pos := make(map[string]int)
	for i := range sorted {
		pos[sorted[i].CppName] = i
	}
	if !(pos["pyBase::wrapper_Type"] < pos["pyDerived::wrapper_Type"] &&
		pos["pyDerived::wrapper_Type"] < pos["pyDerived2::wrapper_Type"]) {
		t.Errorf("bases not before derived: %v", pos)
	}
}

func TestSortTypeInitsMissingBase(t *testing.T) {
	types := []ast.TypeInit{
		{CppName: "pyDerived::wrapper_Type", WrappedBase: "pyBase::wrapper_Type"},
	}
	_, err := SortTypeInits(types)
	if err == nil {
		t.Fatal("SortTypeInits succeeded, want missing-import error")
	}
	if !strings.Contains(err.Error(), "missing import") {
		t.Errorf("error %q does not name the missing import", err)
	}
	if !strings.Contains(err.Error(), "pyBase::wrapper_Type") {
		t.Errorf("error %q does not name the absent base", err)
	}
}

func TestSortTypeInitsConflictingBases(t *testing.T) {
	types := []ast.TypeInit{
		{
			CppName:     "pyBoth::wrapper_Type",
			PyBase:      &ast.PyBase{FQName: "other.module.Base"},
			WrappedBase: "pyBoth::wrapper_Type",
		},
	}
	if _, err := SortTypeInits(types); err == nil {
		t.Error("SortTypeInits accepted both a foreign and a wrapped base")
	}
}

func TestPlannerReadyOrdering(t *testing.T) {
	types := []ast.TypeInit{
		{CppName: "pyDerived::wrapper_Type", WrappedBase: "pyBase::wrapper_Type"},
		{CppName: "pyBase::wrapper_Type"},
	}
	b := NewBuilder()
	if err := NewPlanner().Ready(b, types); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	src := b.String()

	baseReady := strings.Index(src, "PyType_Ready(pyBase::wrapper_Type)")
	derivedBuild := strings.Index(src, "pyDerived::wrapper_Type =")
	if baseReady < 0 || derivedBuild < 0 {
		t.Fatalf("generated Ready() missing registrations:\n%s", src)
	}
	if baseReady > derivedBuild {
		t.Errorf("base registered after derived:\n%s", src)
	}
	if !strings.Contains(src, "pyDerived::wrapper_Type->tp_base = pyBase::wrapper_Type;") {
		t.Errorf("derived not linked to local base:\n%s", src)
	}
	if !strings.Contains(src, "Py_INCREF(pyBase::wrapper_Type);") {
		t.Errorf("local base not INCREFed before linking:\n%s", src)
	}
}

func TestPlannerForeignBaseValidationAndCache(t *testing.T) {
	shared := &ast.PyBase{FQName: "other.module.Base"}
	types := []ast.TypeInit{
		{CppName: "pyA::wrapper_Type", PyBase: shared},
		{CppName: "pyB::wrapper_Type", PyBase: shared},
	}
	b := NewBuilder()
	if err := NewPlanner().Ready(b, types); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	src := b.String()

	if got := strings.Count(src, `ImportFQName("other.module.Base")`); got != 1 {
		t.Errorf("foreign base imported %d times, want 1 (cached reuse):\n%s", got, src)
	}
	if got := strings.Count(src, "tp_alloc == PyType_GenericAlloc"); got != 1 {
		t.Errorf("static-type check emitted %d times, want 1:\n%s", got, src)
	}
	if !strings.Contains(src, "PyObject_TypeCheck(base_cls, &PyType_Type)") {
		t.Errorf("missing is-a-type validation:\n%s", src)
	}
	// The second class reuses the cached handle with a fresh reference.
	if !strings.Contains(src, "Py_INCREF(base_cls);") {
		t.Errorf("cached base not INCREFed for reuse:\n%s", src)
	}
}

func TestPlannerScopedForeignImport(t *testing.T) {
	types := []ast.TypeInit{
		{CppName: "pyA::wrapper_Type", PyBase: &ast.PyBase{FQName: "pkg.mod.Base", TopLevel: "pkg"}},
	}
	b := NewBuilder()
	if err := NewPlanner().Ready(b, types); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	if !strings.Contains(b.String(), `ImportFQName("pkg.mod.Base", "pkg")`) {
		t.Errorf("scoped import not emitted:\n%s", b.String())
	}
}
