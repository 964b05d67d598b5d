package gen

import "github.com/omsandippatil/clif/ast"

// ---------------------------------------------------------------------------
// Property accessors for wrapped data members
// ---------------------------------------------------------------------------

// VarGetter emits a property getter converting the stored value to Python.
// errCheck, when non-empty, is a C++ condition returning before conversion
// (e.g. the instance was never constructed). asCFunction selects the
// PyCFunction calling convention over the getset one.
func VarGetter(b *Builder, name string, asCFunction bool, errCheck, cvar, pc string, isExtend bool) {
	xdata := ", void* xdata"
	if asCFunction {
		xdata = ""
	}
	b.Blank()
	b.Line("static PyObject* %s(PyObject* self%s) {", name, xdata)
	b.Scope(func() {
		if errCheck != "" && !isExtend {
			b.Line("%sreturn nullptr;", errCheck)
		}
		b.Line("return Clif_PyObjFrom(%s, %s);", cvar, pc)
	})
	b.Line("}")
}

// VarSetter emits a property setter: a delete guard, the conversion, and a
// formatted error naming the offending value and the expected type when the
// conversion fails. csetter, when non-empty, is the C++ setter expression
// called with the converted value instead of assigning cvar.
func VarSetter(b *Builder, name string, asCFunction bool, errCheck, cvar string,
	v *ast.VarDecl, csetter string, asStr string, isExtend bool) {
	retError := "return -1;"
	retOk := "return 0;"
	b.Blank()
	if asCFunction {
		retError = "return nullptr;"
		retOk = "Py_RETURN_NONE;"
		b.Line("static PyObject* %s(PyObject* self, PyObject* value) {", name)
	} else {
		b.Line("static int %s(PyObject* self, PyObject* value, void* xdata) {", name)
	}
	b.Indent()
	if !asCFunction {
		b.Line("if (value == nullptr) {")
		b.Scope(func() {
			b.Line("PyErr_SetString(PyExc_TypeError, \"Cannot delete the %s attribute\");", v.Name.Native)
			b.Line("%s", retError)
		})
		b.Line("}")
		if csetter != "" {
			// The matcher records the true value type on the C++
			// setter's parameter, not on the var itself.
			b.Line("%s cval;", v.CppSet.Params[0].Type.CppType)
			b.Line("if (Clif_PyObjAs(value, &cval)) {")
			b.Scope(func() {
				if errCheck != "" {
					b.Line("%s%s", errCheck, retError)
				}
				if isExtend {
					b.Line("%s(*cpp, cval);", csetter)
				} else {
					b.Line("%s(cval);", csetter)
				}
				b.Line("%s", retOk)
			})
			b.Line("}")
		}
	}
	if csetter == "" {
		if errCheck != "" {
			b.Line("%s%s", errCheck, retError)
		}
		b.Line("if (Clif_PyObjAs(value, &%s)) %s", cvar, retOk)
	}
	b.Line("PyObject* s = PyObject_Repr(value);")
	b.Line("PyErr_Format(PyExc_ValueError, \"%%s is not valid for %s:%s\", s? %s(s): \"input\");",
		v.Name.Native, v.Type.LangType, asStr)
	b.Line("Py_XDECREF(s);")
	b.Line("%s", retError)
	b.Dedent()
	b.Line("}")
}
