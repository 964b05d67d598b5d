package gen

import (
	"fmt"
	"strings"

	"github.com/omsandippatil/clif/ast"
)

// ---------------------------------------------------------------------------
// Whole-module generation
// ---------------------------------------------------------------------------

// overriderName is the redirector class generated for bases with virtual
// methods.
const overriderName = "Overrider"

// GenerateModule renders the complete extension source for a resolved
// module: wrapper structs, call wrappers, accessors, redirectors,
// registration tables, Ready() and module init.
func GenerateModule(m *ast.Module) ([]string, error) {
	g := &moduleGen{m: m, b: NewBuilder()}
	if err := g.run(); err != nil {
		return nil, err
	}
	return g.b.Lines(), nil
}

type moduleGen struct {
	m *ast.Module
	b *Builder

	typeInits []ast.TypeInit
	dict      [][2]string
	done      map[string]bool
}

func (g *moduleGen) run() error {
	m := g.m
	b := g.b
	Headlines(b, m.Source, append([]string{"PYTHON"}, m.Headers...), m.SysHeaders, m.Namespace)
	b.Blank()
	b.Line("static const char* ThisModuleName = \"%s\";", m.PyName)

	// Iterator classes are generated nested inside their container, so
	// the iterator typedef precedes the wrapper struct that embeds it.
	g.done = make(map[string]bool, len(m.Classes))
	for i := range m.Classes {
		if m.Classes[i].IsIterator {
			continue
		}
		if err := g.genClass(&m.Classes[i], ""); err != nil {
			return err
		}
	}
	for i := range m.Classes {
		if m.Classes[i].IsIterator && !g.done[m.Classes[i].PyName] {
			return fmt.Errorf("gen: iterator class %s is not named by any __iter__ container",
				m.Classes[i].PyName)
		}
	}

	var moduleMethods []DefEntry
	for i := range m.Functions {
		f := &m.Functions[i]
		entry, err := g.genFunction(f, "", f.Name.Cpp)
		if err != nil {
			return err
		}
		moduleMethods = append(moduleMethods, entry)
	}
	methRef := "nullptr"
	if len(moduleMethods) > 0 {
		MethodDefTable(b, moduleMethods)
		methRef = MethodTableName
	}

	planner := NewPlanner()
	if err := planner.Ready(b, g.typeInits); err != nil {
		return err
	}
	doc := "CLIF-generated module for " + m.Source
	if err := InitFunction(b, doc, methRef, nil, g.dict); err != nil {
		return err
	}

	b.Blank()
	b.Line("%s", CloseNs(m.Namespace))

	modname := m.PyName
	if i := strings.LastIndex(modname, "."); i >= 0 {
		modname = modname[i+1:]
	}
	return PyModInitFunction(b, "", modname, m.Namespace)
}

// genClass emits everything for one wrapped class inside its own namespace.
// outer is the enclosing class namespace for nested iterator classes, empty
// for top-level ones.
func (g *moduleGen) genClass(cls *ast.ClassDecl, outer string) error {
	b := g.b
	ns := ClassNamespace(cls.PyName)
	fqns := ns
	if outer != "" {
		fqns = outer + "::" + ns
	}
	g.done[cls.PyName] = true
	isIter := cls.IsIterator

	b.Blank()
	b.Line("namespace %s {", ns)

	substCppPtr := ""
	if len(cls.Virtuals) > 0 {
		r := &Redirector{
			Name:            overriderName,
			PyName:          cls.PyName,
			CppName:         cls.Name.Cpp,
			CtorName:        cls.Name.Cpp + "::" + lastCppComponent(cls.Name.Cpp),
			Abstract:        cls.Abstract,
			PostConversions: g.m.PostConversions,
		}
		r.Emit(b, cls.Virtuals)
		substCppPtr = overriderName
	}

	wrappedType := cls.Name.Cpp
	if substCppPtr != "" {
		wrappedType = substCppPtr
	}
	var iterCls *ast.ClassDecl
	iterNs := ""
	hasIter := ""
	if cls.IterClass != "" {
		if isIter {
			return fmt.Errorf("gen: %s: an iterator class cannot declare __iter__ itself",
				cls.PyName)
		}
		iterCls = g.findClass(cls.IterClass)
		if iterCls == nil {
			return fmt.Errorf("gen: %s: __iter__ class %s is not wrapped in this module",
				cls.PyName, cls.IterClass)
		}
		if !iterCls.IsIterator {
			return fmt.Errorf("gen: %s: __iter__ class %s is not an iterator",
				cls.PyName, cls.IterClass)
		}
		iterNs = ClassNamespace(iterCls.PyName)
		hasIter = iterValueType(iterCls).CppType
		if hasIter == "" {
			return fmt.Errorf("gen: %s: iterator class %s has no returning __next__",
				cls.PyName, cls.IterClass)
		}
	}
	WrapperClassDef(b, "wrapper", wrappedType, cls.Name.Cpp, isIter, hasIter, iterNs, cls.EnableInstanceDict)
	if iterCls != nil {
		// The iterator lives inside the container namespace; its wrapper
		// struct needs the typedef emitted just above.
		if err := g.genClass(iterCls, fqns); err != nil {
			return err
		}
	}

	self := cast("wrapper") + "(self)"
	var methods []DefEntry
	var properties []DefEntry
	ctor := ""
	ctorNoArgs := false
	// An iterator class exposes only the protocol slots; its __next__
	// declaration supplies the element type but is not wrapped itself.
	if !isIter {
		for i := range cls.Methods {
			f := &cls.Methods[i]
			if f.Constructor {
				target := cls.Name.Cpp
				if substCppPtr != "" {
					target = substCppPtr
				}
				call := fmt.Sprintf("%s->cpp = ::clif::MakeShared<%s>", self, target)
				entry, err := g.genFunction(f, cls.PyName, call)
				if err != nil {
					return err
				}
				ctor = entry.CName
				ctorNoArgs = len(f.Params) == 0
				continue
			}
			entry, err := g.genMethod(f, cls)
			if err != nil {
				return err
			}
			methods = append(methods, entry)
		}
		if len(methods) > 0 {
			MethodDefTable(b, methods)
		}

		for i := range cls.Vars {
			v := &cls.Vars[i]
			properties = append(properties, g.genVar(v, cls))
		}
		if len(properties) > 0 || cls.EnableInstanceDict {
			b.Blank()
			GetSetDefTable(b, properties, cls.EnableInstanceDict)
		}
	}

	slots := map[string]string{}
	for k, v := range cls.Slots {
		slots[k] = v
	}
	if len(methods) > 0 {
		slots["tp_methods"] = MethodTableName
	}
	if len(properties) > 0 || cls.EnableInstanceDict {
		slots["tp_getset"] = "Properties"
	}

	iterExpr := ""
	if isIter {
		iterExpr = self + "->iter"
		IterNext(b, iterExpr, cls.AsyncIter,
			postConvInit(iterValueType(cls), g.m.PostConversions, false))
		slots["tp_iternext"] = IterNextName
	}
	if iterCls != nil {
		NewIter(b, "*ThisPtr(self)", iterNs+"::", iterNs+"::wrapper", iterNs+"::wrapper_Type")
		slots["tp_iter"] = NewIterName
	}

	if cls.Abstract && ctor == "" && !isIter {
		// Abstract classes without a wrapped __init__ still need one so
		// Python subclasses can construct the redirector.
		ctor = CtorDefault
	}
	tobj := &TypeObject{
		HtQualname:         cls.PyName,
		PyName:             cls.PyName,
		Ctor:               ctor,
		WrapperName:        "wrapper",
		FQClassName:        cls.Name.Cpp,
		Abstract:           cls.Abstract,
		Iterator:           iterExpr,
		TrivialDtor:        cls.TrivialDtor,
		SubstCppPtr:        substCppPtr,
		EnableInstanceDict: cls.EnableInstanceDict,
		CppHasExtDefCtor:   ctorNoArgs && ctor != CtorDefault,
		Slots:              slots,
		Flags:              []string{"Py_TPFLAGS_DEFAULT", "Py_TPFLAGS_BASETYPE"},
	}
	tobj.Emit(b)

	b.Blank()
	b.Line("}  // namespace %s", ns)

	wrappedBase := ""
	if cls.WrappedBase != "" {
		wrappedBase = ClassNamespace(cls.WrappedBase) + "::wrapper_Type"
	}
	g.typeInits = append(g.typeInits, ast.TypeInit{
		CppName:     fqns + "::wrapper_Type",
		PyBase:      cls.PyBase,
		WrappedBase: wrappedBase,
		Slots:       cls.Slots,
	})
	if outer == "" {
		g.dict = append(g.dict, [2]string{
			cls.PyName, "(PyObject*)" + ns + "::wrapper_Type",
		})
	}
	return nil
}

func (g *moduleGen) findClass(pyName string) *ast.ClassDecl {
	for i := range g.m.Classes {
		if g.m.Classes[i].PyName == pyName {
			return &g.m.Classes[i]
		}
	}
	return nil
}

// genMethod emits the wrapper for one instance/class method and returns its
// registration entry.
func (g *moduleGen) genMethod(f *ast.FuncDecl, cls *ast.ClassDecl) (DefEntry, error) {
	var call string
	if f.Classmethod {
		call = cls.Name.Cpp + "::" + lastCppComponent(f.Name.Cpp)
		return g.genFunctionWith(f, cls.PyName, []string{call})
	}
	return g.genFunctionWith(f, cls.PyName, []string{
		"// Get C++ object.",
		"auto cpp = ThisPtr(self);",
		"if (cpp == nullptr) return nullptr;",
		"cpp->" + lastCppComponent(f.Name.Cpp),
	})
}

// genFunction emits the wrapper for a free function (or constructor call
// expression) and returns its registration entry.
func (g *moduleGen) genFunction(f *ast.FuncDecl, clsName, call string) (DefEntry, error) {
	return g.genFunctionWith(f, clsName, []string{call})
}

func (g *moduleGen) genFunctionWith(f *ast.FuncDecl, clsName string, call []string) (DefEntry, error) {
	wrapper := WrapperName(f.Name.Native)
	w := &CallWrapper{
		PyName:          f.Name.Native,
		Wrapper:         wrapper,
		Doc:             signatureDoc(f),
		Call:            call,
		Func:            f,
		PostConversions: g.m.PostConversions,
	}
	if err := w.Emit(g.b); err != nil {
		if clsName != "" {
			return DefEntry{}, fmt.Errorf("%s.%s: %w", clsName, f.Name.Native, err)
		}
		return DefEntry{}, fmt.Errorf("%s: %w", f.Name.Native, err)
	}
	meth := "METH_NOARGS"
	if len(f.Params) > 0 || strings.TrimSuffix(f.Name.Native, "@") == "__call__" {
		meth = "METH_VARARGS | METH_KEYWORDS"
	}
	if f.Classmethod {
		meth = "METH_CLASS | " + meth
	}
	return DefEntry{
		PyName: strings.TrimSuffix(f.Name.Native, "@"),
		CName:  wrapper,
		Meth:   meth,
		Doc:    signatureDoc(f),
	}, nil
}

// genVar emits the getter/setter pair for a wrapped data member and returns
// its getset entry.
func (g *moduleGen) genVar(v *ast.VarDecl, cls *ast.ClassDecl) DefEntry {
	b := g.b
	getter := "get_" + v.Name.Native
	setter := "set_" + v.Name.Native
	errCheck := "if (!ThisPtr(self)) "
	cvar := "ThisPtr(self)->" + v.Name.Cpp
	pc := postConvInit(&v.Type, g.m.PostConversions, false)
	VarGetter(b, getter, false, errCheck, cvar, pc, false)
	csetter := ""
	if v.CppSet != nil {
		csetter = "ThisPtr(self)->" + lastCppComponent(v.CppSet.Name.Cpp)
	}
	VarSetter(b, setter, false, errCheck, cvar, v, csetter, "PyUnicode_AsUTF8", false)
	return DefEntry{PyName: v.Name.Native, CName: getter, Meth: setter}
}

// signatureDoc spells the C++ signature echoed in comments and docstrings.
func signatureDoc(f *ast.FuncDecl) string {
	params := make([]string, len(f.Params))
	for i := range f.Params {
		params[i] = f.Params[i].Type.CppType
	}
	return ast.ReturnType(f) + " " + f.Name.Cpp + ast.TupleStr(params)
}

// lastCppComponent strips the qualification from a C++ name.
func lastCppComponent(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// iterValueType returns the element type an iterator class yields. The
// matcher records it as the first return of the first method when present.
func iterValueType(cls *ast.ClassDecl) *ast.Type {
	for i := range cls.Methods {
		if len(cls.Methods[i].Returns) > 0 {
			return &cls.Methods[i].Returns[0].Type
		}
	}
	return &ast.Type{}
}
