package gen

import (
	"fmt"
	"strings"

	"github.com/omsandippatil/clif/ast"
)

// ---------------------------------------------------------------------------
// Parameter Lowering Engine: materialize one parameter as a C++ local
// ---------------------------------------------------------------------------

// LowerStrategy identifies how a parameter is materialized. One constant
// per row of the lowering decision table; emission switches over the
// strategy, so a new row cannot be skipped silently.
type LowerStrategy int

const (
	// LowerCallable declares a std::function local, forwarded by move.
	LowerCallable LowerStrategy = iota
	// LowerRawPointer declares a raw pointer local, forwarded as is.
	LowerRawPointer
	// LowerOwningForPointer declares a unique_ptr local for an abstract
	// pointee, forwarding .get().
	LowerOwningForPointer
	// LowerStackForPointer declares a stack value, forwarding its
	// address.
	LowerStackForPointer
	// LowerOptionalForPointer declares an optional-wrapped stack value,
	// forwarding the address of .value().
	LowerOptionalForPointer
	// LowerSmartPointer declares the owning-pointer type itself,
	// forwarded by move.
	LowerSmartPointer
	// LowerPointerDeref declares a raw pointer local, forwarded
	// dereferenced. The call site must null-check before use.
	LowerPointerDeref
	// LowerOwningDeref declares a unique_ptr local for an abstract
	// value/reference target, forwarded dereferenced.
	LowerOwningDeref
	// LowerStackValue declares a default-constructed stack value,
	// forwarded by move.
	LowerStackValue
	// LowerOptionalValue declares an optional-wrapped stack value,
	// forwarded via .value().
	LowerOptionalValue
)

// Lowered is the materialization of one parameter: the local declaration,
// the expression forwarded to the underlying call, and whether the call
// site must null-check the converted local first.
type Lowered struct {
	Strategy       LowerStrategy
	NeedsNullCheck bool
	Decl           string
	Expr           string
}

// LowerParam decides how to materialize parameter p as a C++ local named
// arg. funcName is used in failure messages only. The decision rows are
// checked in order; the first applicable one wins.
func LowerParam(funcName string, p *ast.Param, arg string) (Lowered, error) {
	t := &p.Type
	ctype := t.CppType

	// std::function special case: an empty C++ spelling means the
	// matcher resolved this parameter to a callable signature.
	if ctype == "" {
		if t.Callable == nil {
			return Lowered{}, fmt.Errorf("gen: non-callable param %s of %s has empty cpp_type",
				p.Name.Native, funcName)
		}
		if len(t.Callable.Returns) > 1 {
			return Lowered{}, fmt.Errorf("gen: callbacks may not have any output parameters, "+
				"%s param %s has %d", funcName, p.Name.Native, len(t.Callable.Returns)-1)
		}
		return Lowered{
			Strategy: LowerCallable,
			Decl:     fmt.Sprintf("std::function<%s> %s;", ast.StdFuncParamStr(t.Callable), arg),
			Expr:     fmt.Sprintf("std::move(%s)", arg),
		}, nil
	}

	// T*
	if t.RawPointer {
		if t.HasToPtrConv {
			return Lowered{
				Strategy: LowerRawPointer,
				Decl:     fmt.Sprintf("%s %s;", ctype, arg),
				Expr:     arg,
			}, nil
		}
		if strings.HasSuffix(ctype, "*") {
			pointee := ctype[:len(ctype)-1]
			if t.Abstract {
				if t.HasToUniqConv {
					return Lowered{
						Strategy: LowerOwningForPointer,
						Decl:     fmt.Sprintf("::std::unique_ptr<%s> %s;", pointee, arg),
						Expr:     arg + ".get()",
					}, nil
				}
			} else if t.HasPublicDtor {
				// Create a copy on stack and pass its address.
				if t.HasDefaultCtor {
					return Lowered{
						Strategy: LowerStackForPointer,
						Decl:     fmt.Sprintf("%s %s;", pointee, arg),
						Expr:     "&" + arg,
					}, nil
				}
				return Lowered{
					Strategy: LowerOptionalForPointer,
					Decl:     fmt.Sprintf("::absl::optional<%s> %s;", pointee, arg),
					Expr:     fmt.Sprintf("&%s.value()", arg),
				}, nil
			}
		}
		return Lowered{}, fmt.Errorf("gen: can't convert %s to %s", t.LangType, ctype)
	}

	smartptr := t.SmartPtr()
	if (smartptr || t.Abstract) && !t.HasToUniqConv {
		return Lowered{}, fmt.Errorf("gen: can't create %q variable (C++ type %s) in function %s"+
			", no valid conversion defined", p.Name.Native, ctype, funcName)
	}

	// unique_ptr<T>, shared_ptr<T>
	if smartptr {
		return Lowered{
			Strategy: LowerSmartPointer,
			Decl:     fmt.Sprintf("%s %s;", ctype, arg),
			Expr:     fmt.Sprintf("std::move(%s)", arg),
		}, nil
	}

	// T, [const] T&
	if t.HasToPtrConv {
		return Lowered{
			Strategy:       LowerPointerDeref,
			NeedsNullCheck: true,
			Decl:           fmt.Sprintf("%s* %s;", ctype, arg),
			Expr:           "*" + arg,
		}, nil
	}
	if t.Abstract { // for AbstractType &
		return Lowered{
			Strategy: LowerOwningDeref,
			Decl:     fmt.Sprintf("std::unique_ptr<%s> %s;", ctype, arg),
			Expr:     "*" + arg,
		}, nil
	}
	// Create a copy on stack (even for T&, most cases have a to-T* conv).
	if t.HasDefaultCtor {
		return Lowered{
			Strategy: LowerStackValue,
			Decl:     fmt.Sprintf("%s %s;", ctype, arg),
			Expr:     fmt.Sprintf("std::move(%s)", arg),
		}, nil
	}
	return Lowered{
		Strategy: LowerOptionalValue,
		Decl:     fmt.Sprintf("::absl::optional<%s> %s;", ctype, arg),
		Expr:     arg + ".value()",
	}, nil
}
