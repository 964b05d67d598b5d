package ast

import (
	"reflect"
	"testing"
)

func TestTupleStr(t *testing.T) {
	if got := TupleStr(nil); got != "()" {
		t.Errorf("TupleStr(nil) = %q, want ()", got)
	}
	if got := TupleStr([]string{"a", "b"}); got != "(a, b)" {
		t.Errorf("got %q, want (a, b)", got)
	}
}

func TestReturnTypes(t *testing.T) {
	intp := Param{Type: Type{CppType: "int"}}
	refp := Param{Type: Type{CppType: "::Big", CppExactType: "const ::Big&"}}

	tests := []struct {
		name      string
		f         FuncDecl
		want      string
		wantExact string
	}{
		{"no returns", FuncDecl{}, "void", "void"},
		{"void with outputs", FuncDecl{CppVoidReturn: true, Returns: []Param{intp}}, "void", "void"},
		{"plain", FuncDecl{Returns: []Param{intp}}, "int", "int"},
		{"exact ref", FuncDecl{Returns: []Param{refp}}, "::Big", "const ::Big&"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReturnType(&tt.f); got != tt.want {
				t.Errorf("ReturnType = %q, want %q", got, tt.want)
			}
			if got := ExactReturnType(&tt.f); got != tt.wantExact {
				t.Errorf("ExactReturnType = %q, want %q", got, tt.wantExact)
			}
		})
	}
}

func TestOutputParams(t *testing.T) {
	a := Param{Type: Type{CppType: "int"}}
	b := Param{Type: Type{CppType: "bool"}}

	f := FuncDecl{Returns: []Param{a, b}}
	if got := OutputParams(&f); !reflect.DeepEqual(got, []Param{b}) {
		t.Errorf("value return: outputs = %v, want second return only", got)
	}
	f = FuncDecl{CppVoidReturn: true, Returns: []Param{a, b}}
	if got := OutputParams(&f); len(got) != 2 {
		t.Errorf("void return: outputs = %v, want both returns", got)
	}
	f = FuncDecl{Returns: []Param{a}}
	if got := OutputParams(&f); got != nil {
		t.Errorf("single value return: outputs = %v, want none", got)
	}
}

func TestFuncParamStr(t *testing.T) {
	f := FuncDecl{
		Params: []Param{
			{Type: Type{CppType: "int"}},
			{Type: Type{CppType: "::std::string", CppExactType: "const ::std::string&"}},
		},
		Returns: []Param{
			{Type: Type{CppType: "bool"}},
			{Type: Type{CppType: "int", CppExactType: "int*"}},
		},
	}
	want := "(int a0, const ::std::string& a1, int* a2)"
	if got := FuncParamStr(&f, "a"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStdFuncParamStr(t *testing.T) {
	callable := FuncDecl{
		Params:  []Param{{Type: Type{CppType: "int"}}},
		Returns: []Param{{Type: Type{CppType: "bool"}}},
	}
	if got, want := StdFuncParamStr(&callable), "bool (int)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	empty := FuncDecl{}
	if got, want := StdFuncParamStr(&empty), "void ()"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMinArgs(t *testing.T) {
	f := FuncDecl{Params: []Param{
		{Name: Name{Native: "a"}},
		{Name: Name{Native: "b"}, Default: "1"},
		{Name: Name{Native: "c"}, Default: DefaultUnknown},
	}}
	if got := f.MinArgs(); got != 1 {
		t.Errorf("MinArgs = %d, want 1", got)
	}
}

func TestSmartPtr(t *testing.T) {
	tests := []struct {
		ctype string
		want  bool
	}{
		{"::std::unique_ptr<::Thing>", true},
		{"::std::shared_ptr<::Thing>", true},
		{"::Thing*", false},
		{"::my::unique_ptr<::Thing>", false},
	}
	for _, tt := range tests {
		typ := Type{CppType: tt.ctype}
		if got := typ.SmartPtr(); got != tt.want {
			t.Errorf("SmartPtr(%q) = %v, want %v", tt.ctype, got, tt.want)
		}
	}
}
