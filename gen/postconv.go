package gen

import (
	"strings"

	"github.com/omsandippatil/clif/ast"
)

// postConvInit returns the post-conversion initializer passed as the second
// argument of Clif_PyObjFrom for a value of type t. conversions maps a
// Python type name to its converter; types without one (and functions
// marked non-raising, whose results never need a raising conversion) get
// the empty initializer.
func postConvInit(t *ast.Type, conversions map[string]string, nonRaising bool) string {
	if nonRaising {
		return "{}"
	}
	if conv, ok := conversions[t.LangType]; ok {
		return "{" + conv + "}"
	}
	return "{}"
}

// callablePostConv builds the trailing Clif_PyObjAs argument converting a
// std::function parameter: one initializer per callable parameter.
func callablePostConv(callable *ast.FuncDecl, conversions map[string]string) string {
	inits := make([]string, len(callable.Params))
	for i := range callable.Params {
		inits[i] = postConvInit(&callable.Params[i].Type, conversions, false)
	}
	return ", {" + strings.Join(inits, ", ") + "}"
}
