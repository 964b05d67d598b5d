// Package ast defines the resolved binding-interface descriptors consumed by
// the code generators. Every descriptor arrives fully resolved from the
// external matcher: type spellings, conversion availability and qualified
// names are already filled in, and nothing here is mutated after decoding.
package ast

import "strings"

// Name is a dual-language identifier: the Python-visible spelling and the
// C++ spelling it maps to.
type Name struct {
	Native string `cbor:"native"`
	Cpp    string `cbor:"cpp"`
}

// Type describes one resolved parameter or return type.
type Type struct {
	// LangType is the Python-side type name (used in error messages).
	LangType string `cbor:"lang_type"`

	// CppType is the mangled fully-qualified C++ spelling. Empty for
	// callable parameters, which carry their signature in Callable.
	CppType string `cbor:"cpp_type"`

	// CppExactType preserves const/& that CppType drops. Optional.
	CppExactType string `cbor:"cpp_exact_type"`

	RawPointer     bool `cbor:"cpp_raw_pointer"`
	Abstract       bool `cbor:"cpp_abstract"`
	HasDefaultCtor bool `cbor:"cpp_has_def_ctor"`
	HasPublicDtor  bool `cbor:"cpp_has_public_dtor"`

	// Conversion availability, decided by the matcher.
	HasToPtrConv  bool `cbor:"cpp_toptr_conversion"`
	HasToUniqConv bool `cbor:"cpp_touniqptr_conversion"`

	// Callable is the signature of a std::function parameter.
	Callable *FuncDecl `cbor:"callable,omitempty"`
}

// SmartPtr reports whether the C++ type is an owning pointer.
func (t *Type) SmartPtr() bool {
	return strings.HasPrefix(t.CppType, "::std::unique_ptr") ||
		strings.HasPrefix(t.CppType, "::std::shared_ptr")
}

// ExactOrType returns the exact C++ spelling when the matcher recorded one.
func (t *Type) ExactOrType() string {
	if t.CppExactType != "" {
		return t.CppExactType
	}
	return t.CppType
}

// DefaultUnknown marks a default value the matcher could not recover
// statically.
const DefaultUnknown = "default"

// Param is one function parameter or return slot.
type Param struct {
	Name Name `cbor:"name"`
	Type Type `cbor:"type"`

	// Default is empty for required parameters, a C++ literal for
	// parameters with a known default, or DefaultUnknown.
	Default string `cbor:"default_value,omitempty"`
}

// HasDefault reports whether the parameter may be omitted by the caller.
func (p *Param) HasDefault() bool { return p.Default != "" }

// FuncDecl is one resolved function or method declaration.
type FuncDecl struct {
	Name    Name    `cbor:"name"`
	Params  []Param `cbor:"params"`
	Returns []Param `cbor:"returns"`

	// CppVoidReturn is set when the C++ function returns void and all
	// Returns entries are output parameters.
	CppVoidReturn bool `cbor:"cpp_void_return"`

	Classmethod bool `cbor:"classmethod"`
	Constructor bool `cbor:"constructor"`

	// KeepGIL suppresses the release of the interpreter lock around the
	// underlying call.
	KeepGIL bool `cbor:"py_keep_gil"`

	// CatchExceptions wraps the underlying call in a try/catch that is
	// translated to a Python error after the lock is reacquired.
	CatchExceptions bool `cbor:"catch_exceptions"`

	// Postproc is the qualified name of a Python callable applied to the
	// packed result tuple, or "->self" to return self.
	Postproc string `cbor:"postproc,omitempty"`

	MarkedNonRaising bool `cbor:"marked_non_raising"`
	IsExtendMethod   bool `cbor:"is_extend_method"`

	// Virtual-method modifiers.
	ConstMethod bool `cbor:"cpp_const_method"`
	Noexcept    bool `cbor:"cpp_noexcept"`

	// Line is the interface-definition line the declaration came from.
	Line int `cbor:"line"`
}

// MinArgs returns the number of parameters without a default value.
func (f *FuncDecl) MinArgs() int {
	n := 0
	for i := range f.Params {
		if !f.Params[i].HasDefault() {
			n++
		}
	}
	return n
}

// VarDecl is one wrapped data member.
type VarDecl struct {
	Name Name `cbor:"name"`
	Type Type `cbor:"type"`

	// CppSet, when present, is the C++ setter the generated property
	// setter must call instead of assigning directly.
	CppSet *FuncDecl `cbor:"cpp_set,omitempty"`
}

// PyBase identifies a base class defined outside the module being
// generated, by fully qualified Python name.
type PyBase struct {
	FQName string `cbor:"fq_name"`
	// TopLevel optionally scopes the import to a top-level unit.
	TopLevel string `cbor:"top_level,omitempty"`
}

// TypeInit is the registration record for one wrapped class. Exactly one of
// PyBase and WrappedBase may be set; both empty means a root class.
type TypeInit struct {
	// CppName is the generated type-object variable, e.g.
	// "pyOuter::wrapper_Type".
	CppName string `cbor:"cpp_name"`

	PyBase      *PyBase `cbor:"py_base,omitempty"`
	WrappedBase string  `cbor:"wrapped_base,omitempty"`

	// Slots is the slot configuration handed to the slot-table emitter.
	Slots map[string]string `cbor:"slots,omitempty"`
}

// ClassDecl is one wrapped class.
type ClassDecl struct {
	Name   Name   `cbor:"name"`
	PyName string `cbor:"py_name"`

	PyBase      *PyBase `cbor:"py_base,omitempty"`
	WrappedBase string  `cbor:"wrapped_base,omitempty"`

	Abstract    bool `cbor:"abstract"`
	TrivialDtor bool `cbor:"trivial_dtor"`

	// IsIterator marks the companion class wrapping a container's
	// __iter__ result: its wrapper holds the iterator state instead of a
	// C++ instance and implements tp_iternext.
	IsIterator bool `cbor:"is_iterator"`
	// IterClass names the module class (by Python name) wrapping this
	// class's __iter__ result. Set on the container; the named class
	// must have IsIterator.
	IterClass string `cbor:"iter_class,omitempty"`
	// AsyncIter releases the interpreter lock while the iterator
	// advances.
	AsyncIter bool `cbor:"async_iter"`

	EnableInstanceDict bool `cbor:"enable_instance_dict"`

	Methods []FuncDecl `cbor:"methods,omitempty"`
	Vars    []VarDecl  `cbor:"vars,omitempty"`

	// Virtuals are the virtual methods a redirector subclass must cover.
	Virtuals []FuncDecl `cbor:"virtuals,omitempty"`

	// Slots is the slot configuration for the class's type object.
	Slots map[string]string `cbor:"slots,omitempty"`
}

// Module is the complete resolved input for one generated extension module.
type Module struct {
	// Source names the interface-definition file, for the banner.
	Source string `cbor:"source"`

	// PyName is the Python module name.
	PyName string `cbor:"py_name"`

	// Namespace is the C++ namespace wrapping the generated code.
	Namespace string `cbor:"namespace"`

	Headers    []string `cbor:"headers,omitempty"`
	SysHeaders []string `cbor:"sys_headers,omitempty"`

	Classes   []ClassDecl `cbor:"classes,omitempty"`
	Functions []FuncDecl  `cbor:"functions,omitempty"`

	// PostConversions maps a Python type name to the converter applied
	// after Clif_PyObjFrom for values of that type.
	PostConversions map[string]string `cbor:"post_conversions,omitempty"`
}
