package gen

import (
	"fmt"
	"strings"

	"github.com/omsandippatil/clif/ast"
)

// ---------------------------------------------------------------------------
// Call Wrapper Generator: one PyCFunction per declared function/method
// ---------------------------------------------------------------------------

// CallWrapper describes one generated call wrapper. Emit produces the
// complete PyCFunction: argument parsing, per-parameter lowering, lock
// release around the underlying call, optional exception translation and
// return packing.
type CallWrapper struct {
	// PyName is the Python-visible name. The suffixes "__enter__@" and
	// "__exit__@" mark the context-manager entry points, which force the
	// return value to self and None respectively.
	PyName string

	// Wrapper is the generated C++ function name.
	Wrapper string

	// Doc is the C++ signature echoed in the header comment.
	Doc string

	// Call holds C++ statements preparing the call; the last element is
	// the call expression without its "(args)" part.
	Call []string

	// PostCallInit, when set, is a statement (re)setting ret0 after the
	// call returns.
	PostCallInit string

	Func        *ast.FuncDecl
	PrependSelf *ast.Param

	// PostConversions maps Python type names to result converters.
	PostConversions map[string]string
}

// Emit writes the wrapper function to b.
func (w *CallWrapper) Emit(b *Builder) error {
	f := w.Func
	pyname := w.PyName
	ctxmgr := ""
	if strings.HasSuffix(pyname, "@") {
		ctxmgr = pyname
		if ctxmgr != "__enter__@" && ctxmgr != "__exit__@" {
			return fmt.Errorf("gen: invalid context manager name %s", pyname)
		}
		pyname = strings.TrimSuffix(pyname, "@")
	}

	nret := len(f.Returns)
	returnType := ast.ReturnType(f)
	voidReturn := returnType == "void"
	// Extra function parameters carry output values.
	xouts := nret > 1 || (voidReturn && nret > 0)
	nargs := len(f.Params)
	minargs := f.MinArgs()
	isTernary := pyname == "__call__"

	var params []string // C++ argument expressions, in call order.

	b.Blank()
	arg0 := "self"
	if f.Classmethod {
		b.Line("// @classmethod %s", w.Doc)
		// Extra protection that generated code does not use 'self'.
		arg0 = "cls"
	} else {
		b.Line("// %s", w.Doc)
	}
	needsKw := nargs > 0 || isTernary
	if needsKw {
		b.Line("static PyObject* %s(PyObject* %s, PyObject* args, PyObject* kw) {", w.Wrapper, arg0)
	} else {
		b.Line("static PyObject* %s(PyObject* %s) {", w.Wrapper, arg0)
	}
	b.Indent()
	if isTernary && nargs == 0 {
		b.Line("if (!ensure_no_args_and_kw_args(\"%s\", args, kw)) return nullptr;", pyname)
	}
	if w.PrependSelf != nil {
		low, err := LowerParam(w.declSite(pyname), w.PrependSelf, "arg0")
		if err != nil {
			return err
		}
		params = append(params, low.Expr)
		b.Line("%s", low.Decl)
		b.Line("if (!Clif_PyObjAs(self, &arg0)) return nullptr;")
	}

	if nargs > 0 {
		if err := w.emitParse(b, pyname, minargs, nargs, xouts); err != nil {
			return err
		}
		if err := w.emitConversions(b, pyname, minargs, nargs, xouts, &params); err != nil {
			return err
		}
	}

	// Extra return slots become output parameters of the call.
	for n := range f.Returns {
		if n > 0 || voidReturn {
			b.Line("%s ret%d{};", f.Returns[n].Type.CppType, n)
			params = append(params, fmt.Sprintf("&ret%d", n))
		}
	}

	b.Line("// Call actual C++ method.")
	call := w.Call[len(w.Call)-1]
	for _, s := range w.Call[:len(w.Call)-1] {
		b.Line("%s", s)
	}

	if !f.KeepGIL {
		if nargs > 0 {
			// The callee must not observe args/kw being collected
			// while the lock is released.
			b.Line("Py_INCREF(args);")
			b.Line("Py_XINCREF(kw);")
		}
		b.Line("PyThreadState* _save;")
		b.Line("Py_UNBLOCK_THREADS")
	}

	catch := f.CatchExceptions
	optionalRet0 := false
	convertRefToPtr := false
	if (minargs < nargs || catch) && !voidReturn {
		if catch && strings.HasSuffix(strings.TrimRight(returnType, " "), "&") {
			convertRefToPtr = true
			idx := strings.LastIndex(returnType, "&")
			returnType = returnType[:idx] + "*"
		}
		if f.Returns[0].Type.HasDefaultCtor {
			b.Line("%s ret0;", returnType)
		} else {
			// optional<> only needs T(x); a bare T would also need
			// assignment from a default-constructed state.
			b.Line("::absl::optional<%s> ret0;", returnType)
			optionalRet0 = true
		}
	}
	if catch {
		b.Line("PyObject* err_type = nullptr;")
		b.Line("std::string err_msg{\"C++ exception\"};")
		b.Line("try {")
	}

	if minargs < nargs && !xouts {
		if !voidReturn {
			call = "ret0 = " + call
		}
		b.Line("switch (nargs) {")
		for n := minargs; n <= nargs; n++ {
			b.Line("case %d:", n)
			b.Scope(func() {
				b.Line("%s; break;", w.applyParams(call, params, n))
			})
		}
		b.Line("}")
	} else {
		full := w.applyAllParams(call, params)
		emit := func() {
			switch {
			case voidReturn:
				b.Line("%s;", full)
			case catch && convertRefToPtr:
				b.Line("ret0 = &%s;", full)
			case catch:
				b.Line("ret0 = %s;", full)
			default:
				b.Line("%s ret0 = %s;", returnType, full)
			}
		}
		if catch {
			b.Scope(emit)
		} else {
			emit()
		}
	}

	if catch {
		b.Line("} catch(const std::exception& e) {")
		b.Scope(func() {
			b.Line("err_type = PyExc_RuntimeError;")
			b.Line("err_msg += std::string(\": \") + e.what();")
		})
		b.Line("} catch (...) {")
		b.Scope(func() {
			b.Line("err_type = PyExc_RuntimeError;")
		})
		b.Line("}")
	}
	if w.PostCallInit != "" {
		if voidReturn {
			b.Line("%s", w.PostCallInit)
		} else {
			b.Line("ret0%s", w.PostCallInit)
		}
	}
	if !f.KeepGIL {
		b.Line("Py_BLOCK_THREADS")
		if nargs > 0 {
			b.Line("Py_DECREF(args);")
			b.Line("Py_XDECREF(kw);")
		}
	}
	if catch {
		// Error state must only be touched with the lock held.
		b.Line("if (err_type) {")
		b.Scope(func() {
			b.Line("PyErr_SetString(err_type, err_msg.c_str());")
			b.Line("return nullptr;")
		})
		b.Line("}")
	}

	postproc := f.Postproc
	returnSelf := false
	if postproc == "->self" {
		if nret != 0 {
			return fmt.Errorf("gen: %s: -> self must have no other output parameters", pyname)
		}
		postproc = ""
		returnSelf = true
	}
	retPrefix := "ret"
	if convertRefToPtr {
		retPrefix = "*ret"
	}

	switch {
	case nret > 1 || ((postproc != "" || ctxmgr != "") && nret > 0):
		b.Line("// Convert return values to Python.")
		b.Line("PyObject* p, * result_tuple = PyTuple_New(%d);", nret)
		b.Line("if (result_tuple == nullptr) return nullptr;")
		for i := 0; i < nret; i++ {
			pc := postConvInit(&f.Returns[i].Type, w.PostConversions, f.MarkedNonRaising)
			b.Line("if ((p=Clif_PyObjFrom(std::move(%s%d), %s)) == nullptr) {", retPrefix, i, pc)
			b.Scope(func() {
				b.Line("Py_DECREF(result_tuple);")
				b.Line("return nullptr;")
			})
			b.Line("}")
			b.Line("PyTuple_SET_ITEM(result_tuple, %d, p);", i)
		}
		if postproc != "" {
			b.Line("PyObject* pyproc = ImportFQName(\"%s\");", postproc)
			b.Line("if (pyproc == nullptr) {")
			b.Scope(func() {
				b.Line("Py_DECREF(result_tuple);")
				b.Line("return nullptr;")
			})
			b.Line("}")
			b.Line("p = PyObject_CallObject(pyproc, result_tuple);")
			b.Line("Py_DECREF(pyproc);")
			b.Line("Py_CLEAR(result_tuple);")
			if ctxmgr != "" {
				b.Line("if (p == nullptr) return nullptr;")
				b.Line("Py_DECREF(p);  // Not needed by the context manager.")
			} else {
				b.Line("result_tuple = p;")
			}
		}
		switch ctxmgr {
		case "__enter__@":
			b.Line("Py_XDECREF(result_tuple);")
			b.Line("Py_INCREF(self);")
			b.Line("return self;")
		case "__exit__@":
			b.Line("Py_XDECREF(result_tuple);")
			b.Line("Py_RETURN_NONE;")
		default:
			b.Line("return result_tuple;")
		}
	case nret > 0:
		value := retPrefix + "0"
		if optionalRet0 {
			value += ".value()"
		}
		b.Line("return Clif_PyObjFrom(std::move(%s), %s);", value,
			postConvInit(&f.Returns[0].Type, w.PostConversions, f.MarkedNonRaising))
	case returnSelf || ctxmgr == "__enter__@":
		b.Line("Py_INCREF(self);")
		b.Line("return self;")
	default:
		b.Line("Py_RETURN_NONE;")
	}
	b.Dedent()
	b.Line("}")
	return nil
}

// declSite names the declaration in lowering failure messages.
func (w *CallWrapper) declSite(pyname string) string {
	return fmt.Sprintf("%s line %d", pyname, w.Func.Line)
}

// emitParse writes the PyArg_ParseTupleAndKeywords step and, when trailing
// defaults exist with a fixed-arity result, the nargs back-scan that counts
// how many optional arguments were actually supplied.
func (w *CallWrapper) emitParse(b *Builder, pyname string, minargs, nargs int, xouts bool) error {
	if minargs == nargs {
		b.Line("PyObject* a[%d];", nargs)
	} else {
		b.Line("PyObject* a[%d]{};", nargs)
	}
	b.Line("const char* names[] = {")
	b.Scope(func() {
		b.Scope(func() {
			for i := range w.Func.Params {
				b.Line("\"%s\",", w.Func.Params[i].Name.Native)
			}
			b.Line("nullptr")
		})
	})
	b.Line("};")
	format := strings.Repeat("O", nargs)
	if minargs != nargs {
		format = strings.Repeat("O", minargs) + "|" + strings.Repeat("O", nargs-minargs)
	}
	refs := make([]string, nargs)
	for i := range refs {
		refs[i] = fmt.Sprintf("&a[%d]", i)
	}
	b.Line("if (!PyArg_ParseTupleAndKeywords(args, kw, \"%s:%s\", const_cast<char**>(names), %s)) return nullptr;",
		format, pyname, strings.Join(refs, ", "))
	if minargs < nargs && !xouts {
		b.Line("int nargs;  // Find how many args actually passed in.")
		b.Line("for (nargs = %d; nargs > %d; --nargs) {", nargs, minargs)
		b.Scope(func() {
			b.Line("if (a[nargs-1] != nullptr) break;")
		})
		b.Line("}")
	}
	return nil
}

// emitConversions lowers every declared parameter and converts the parsed
// Python values, honoring default values for trailing optional arguments.
func (w *CallWrapper) emitConversions(b *Builder, pyname string, minargs, nargs int, xouts bool, params *[]string) error {
	f := w.Func
	for i := range f.Params {
		p := &f.Params[i]
		arg := fmt.Sprintf("arg%d", i+1)
		low, err := LowerParam(w.declSite(pyname), p, arg)
		if err != nil {
			return err
		}
		*params = append(*params, low.Expr)
		b.Line("%s", low.Decl)

		argErr := fmt.Sprintf("return ArgError(\"%s\", names[%d], \"%s\", a[%d]);",
			pyname, i, p.Type.CppType, i)
		postconv := ""
		if p.Type.CppType == "" {
			postconv = callablePostConv(p.Type.Callable, w.PostConversions)
		}
		cvt := fmt.Sprintf("if (!Clif_PyObjAs(a[%d], &%s%s)) %s", i, arg, postconv, argErr)
		nullCheck := func() {
			if low.NeedsNullCheck {
				b.Line("if (%s == nullptr) {", arg)
				b.Scope(func() {
					b.Line("%s", argErr)
				})
				b.Line("}")
			}
		}

		if i < minargs {
			// Non-default parameter.
			b.Line("%s", cvt)
			nullCheck()
			continue
		}

		wrap := !xouts
		if wrap {
			b.Line("if (nargs > %d) {", i)
			b.Indent()
		}
		switch {
		case p.Default == ast.DefaultUnknown || strings.Contains(p.Default, "inf"):
			// The matcher could not recover the default statically.
			if xouts {
				return fmt.Errorf("gen: can't supply the default for C++ function"+
					" argument. Drop =default in def %s(%s).", pyname, p.Name.Native)
			}
			if i+1 < nargs {
				b.Line("if (!a[%d]) return DefaultArgMissedError(\"%s\", names[%d]);", i, pyname, i)
			}
			b.Line("%s", cvt)
			nullCheck()
		case strings.HasPrefix(low.Expr, "&") && p.Type.RawPointer:
			// A default for an int* style parameter has nowhere to live.
			return fmt.Errorf("gen: a default for integral type pointer argument is"+
				" not supported. Drop =default in def %s(%s).", pyname, p.Name.Native)
		default:
			// C-cast handles enum-valued defaults the matcher returns
			// as integral literals; static_cast rejects brace values.
			b.Line("if (!a[%d]) %s = (%s)%s;", i, arg, p.Type.CppType, p.Default)
			b.Line("else %s", cvt)
			nullCheck()
		}
		if wrap {
			b.Dedent()
			b.Line("}")
		}
	}
	return nil
}

// applyParams renders the call expression with the first n supplied
// argument expressions, for the variable-arity switch dispatch. Extended
// methods carry self as an implicit extra first argument; extended
// constructors instead substitute into the call template.
func (w *CallWrapper) applyParams(call string, params []string, n int) string {
	f := w.Func
	if f.IsExtendMethod && f.Constructor {
		return fmt.Sprintf(call, f.Name.Cpp, ast.TupleStr(params[:n]))
	}
	if f.IsExtendMethod {
		n++
	}
	return call + ast.TupleStr(params[:n])
}

// applyAllParams renders the call expression with every argument
// expression, including prepended self and output parameters.
func (w *CallWrapper) applyAllParams(call string, params []string) string {
	f := w.Func
	if f.IsExtendMethod && f.Constructor {
		return fmt.Sprintf(call, f.Name.Cpp, ast.TupleStr(params))
	}
	return call + ast.TupleStr(params)
}
