package ast

import (
	"fmt"
	"strings"
)

// Shared spelling helpers used by the generators. These operate on resolved
// descriptors only; nothing here consults the matcher.

// TupleStr joins expressions into a parenthesized C++ argument list.
func TupleStr(items []string) string {
	return "(" + strings.Join(items, ", ") + ")"
}

// ReturnType returns the C++ return type of f, "void" when f has no C++
// return slot. The spelling is the mangled fully-qualified form.
func ReturnType(f *FuncDecl) string {
	if f.CppVoidReturn || len(f.Returns) == 0 {
		return "void"
	}
	return f.Returns[0].Type.CppType
}

// ExactReturnType is ReturnType preserving const/& where recorded.
func ExactReturnType(f *FuncDecl) string {
	if f.CppVoidReturn || len(f.Returns) == 0 {
		return "void"
	}
	return f.Returns[0].Type.ExactOrType()
}

// OutputParams returns the return slots passed as output parameters: every
// return beyond the first, or all of them when the C++ return is void.
func OutputParams(f *FuncDecl) []Param {
	if f.CppVoidReturn {
		return f.Returns
	}
	if len(f.Returns) > 1 {
		return f.Returns[1:]
	}
	return nil
}

// OutputTypes returns the exact C++ spellings of OutputParams.
func OutputTypes(f *FuncDecl) []string {
	outs := OutputParams(f)
	types := make([]string, len(outs))
	for i := range outs {
		types[i] = outs[i].Type.ExactOrType()
	}
	return types
}

// FuncParamStr builds the parameter list of a C++ signature for f, naming
// arguments prefix0, prefix1, ... Output parameters follow the declared
// ones, as in the underlying virtual signature.
func FuncParamStr(f *FuncDecl, prefix string) string {
	var parts []string
	i := 0
	for p := range f.Params {
		parts = append(parts, fmt.Sprintf("%s %s%d", f.Params[p].Type.ExactOrType(), prefix, i))
		i++
	}
	for _, t := range OutputTypes(f) {
		parts = append(parts, fmt.Sprintf("%s %s%d", t, prefix, i))
		i++
	}
	return TupleStr(parts)
}

// StdFuncParamStr spells the template argument of std::function for a
// callable signature: "ret (params...)".
func StdFuncParamStr(callable *FuncDecl) string {
	params := make([]string, len(callable.Params))
	for i := range callable.Params {
		params[i] = callable.Params[i].Type.CppType
	}
	return ReturnType(callable) + " " + TupleStr(params)
}
