package gen

import (
	"testing"

	"github.com/omsandippatil/clif/ast"
)

func TestPostConvInit(t *testing.T) {
	conversions := map[string]string{"str": "UnicodeFromBytes"}
	str := &ast.Type{LangType: "str"}
	if got := postConvInit(str, conversions, false); got != "{UnicodeFromBytes}" {
		t.Errorf("got %q, want {UnicodeFromBytes}", got)
	}
	if got := postConvInit(str, conversions, true); got != "{}" {
		t.Errorf("non-raising result must skip the conversion, got %q", got)
	}
	if got := postConvInit(&ast.Type{LangType: "int"}, conversions, false); got != "{}" {
		t.Errorf("got %q, want {}", got)
	}
}

func TestCallablePostConv(t *testing.T) {
	conversions := map[string]string{"str": "UnicodeFromBytes"}
	callable := &ast.FuncDecl{Params: []ast.Param{
		{Type: ast.Type{LangType: "str"}},
		{Type: ast.Type{LangType: "int"}},
	}}
	if got, want := callablePostConv(callable, conversions), ", {{UnicodeFromBytes}, {}}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
