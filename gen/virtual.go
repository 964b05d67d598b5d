package gen

import (
	"fmt"
	"strings"

	"github.com/omsandippatil/clif/ast"
)

// ---------------------------------------------------------------------------
// Virtual Redirector Generator: Python overrides of native virtual methods
// ---------------------------------------------------------------------------

// Redirector describes the derived shim class whose overrides dispatch to a
// Python implementation when the instance carries one, and fall back to the
// native one otherwise.
type Redirector struct {
	// Name is the generated struct name.
	Name string
	// PyName is the Python class name, used in fatal diagnostics.
	PyName string
	// CppName is the C++ base class being redirected.
	CppName string
	// CtorName is the qualified constructor pulled in with "using".
	CtorName string
	// Abstract marks a base with methods that may have no native
	// implementation to fall back to.
	Abstract bool

	PostConversions map[string]string
}

// Emit writes the redirector class with one override per virtual method.
func (r *Redirector) Emit(b *Builder, vfuncs []ast.FuncDecl) {
	b.Blank()
	// The multiple-inheritance order matters here: PyObjRef must come
	// second so the existing casts keep working.
	b.Line("struct %s : %s, PyObjRef {", r.Name, r.CppName)
	b.Scope(func() {
		b.Line("using %s;", r.CtorName)
	})
	for i := range vfuncs {
		r.emitOverride(b, &vfuncs[i])
	}
	b.Line("};")
}

func (r *Redirector) emitOverride(b *Builder, f *ast.FuncDecl) {
	ret := ast.ExactReturnType(f)
	voidReturn := ret == "void"
	mods := ""
	if f.ConstMethod {
		mods += " const"
	}
	if f.Noexcept {
		mods += " noexcept"
	}

	nforward := len(f.Params) + len(ast.OutputParams(f))
	forwarded := make([]string, nforward)
	for i := range forwarded {
		forwarded[i] = fmt.Sprintf("std::move(a%d)", i)
	}
	params := ast.TupleStr(forwarded)

	retSt := ""
	if !voidReturn {
		retSt = "return "
	}

	types := []string{ret}
	inits := make([]string, 0, len(f.Params))
	for i := range f.Params {
		types = append(types, f.Params[i].Type.ExactOrType())
		inits = append(inits, postConvInit(&f.Params[i].Type, r.PostConversions, false))
	}
	types = append(types, ast.OutputTypes(f)...)

	b.Blank()
	b.Scope(func() {
		b.Line("%s %s%s%s override {", ret, cppIdent(f.Name.Cpp), ast.FuncParamStr(f, "a"), mods)
		b.Scope(func() {
			b.Line("SafeAttr impl(self(), \"%s\");", f.Name.Native)
			b.Line("if (impl.get()) {")
			b.Scope(func() {
				b.Line("%s::clif::callback::Func<%s>(impl.get(), {%s})%s;",
					retSt, strings.Join(types, ", "), strings.Join(inits, ", "), params)
			})
			b.Line("} else {")
			b.Scope(func() {
				if r.Abstract {
					// Called from C++ only; without purity info the
					// safe choice for an abstract base is to fail.
					b.Line("Py_FatalError(\"@virtual method %s.%s has no Python implementation.\");",
						r.PyName, f.Name.Native)
					b.Line("abort();")
				} else {
					b.Line("%s%s%s;", retSt, f.Name.Cpp, params)
				}
			})
			b.Line("}")
		})
		b.Line("}")
	})
}
