package locals

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
)

func load(slot int, desc string, offset int) *ir.Load {
	return &ir.Load{Base: ir.Base{Offset: offset}, Slot: slot, Type: desc}
}

func store(slot int, desc string, offset int, v ir.Instruction) *ir.Store {
	return &ir.Store{Base: ir.Base{Offset: offset}, Slot: slot, Type: desc, Value: v, End: offset + 1}
}

func cint(v int32) *ir.Const { return &ir.Const{Kind: ir.ConstInt, Value: v} }

func ret(v ir.Instruction) *ir.Return { return &ir.Return{Value: v} }

func TestBaseName(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"I", "i"},
		{"J", "l"},
		{"Z", "bool"},
		{"[I", "iArr"},
		{"[[I", "iArr2d"},
		{"Ljava/lang/String;", "str"},
		{"[Ljava/lang/String;", "strArr"},
		{"Ljava/lang/Class;", "clazz"},
		{"Ljava/net/URLConnection;", "urlConnection"},
		{"Ljava/util/Map$Entry;", "entry"},
		{"Lcom/acme/Foo$1;", "obj"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.desc); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestNamerIntPool(t *testing.T) {
	n := newNamer(nil)
	var got []string
	for i := 0; i < 6; i++ {
		got = append(got, n.next("I"))
	}
	want := []string{"i", "j", "k", "m", "n", "i1"}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Errorf("next(I) x6 = %v, want %v", got, want)
	}
}

func TestNamerAvoidsKeywordsAndFields(t *testing.T) {
	n := newNamer([]string{"str", "i"})
	tests := []struct {
		desc string
		want string
	}{
		{"Lcom/acme/Int;", "int1"},
		{"Ljava/lang/String;", "str1"},
		{"I", "j"},
		{"Ljava/lang/String;", "str2"},
	}
	for _, tt := range tests {
		if got := n.next(tt.desc); got != tt.want {
			t.Errorf("next(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestResolveFromTable(t *testing.T) {
	m := Method{
		Desc:    "(I)I",
		Static:  true,
		CodeLen: 10,
		Table: []classfile.LocalVariable{
			{Start: 0, Length: 10, Name: "count", Descriptor: "I", Slot: 0},
			{Start: 2, Length: 8, Name: "total", Descriptor: "I", Slot: 1},
		},
	}
	st := store(1, "I", 1, load(0, "I", 0))
	body := []ir.Instruction{st, ret(load(1, "I", 5))}
	set := Resolve(m, body, nil, Options{})

	want := "Store(1 total, Load(0 count))\nReturn(Load(1 total))\n"
	if got := ir.Sprint(body); got != want {
		t.Errorf("Resolve() body = %q, want %q", got, want)
	}
	if len(set.Vars) != 2 {
		t.Fatalf("len(Vars) = %d, want 2", len(set.Vars))
	}
	if v := set.Of(st); v == nil || v.Declared || v.Start != 2 {
		t.Errorf("Of(store) = %+v, want the table entry", v)
	}
}

func TestResolveSynthesized(t *testing.T) {
	m := Method{Desc: "()V", CodeLen: 20}
	body := []ir.Instruction{
		store(1, "I", 0, cint(0)),
		store(2, "I", 2, cint(1)),
		store(3, "Ljava/lang/String;", 4, &ir.Const{Kind: ir.ConstString, Value: "x"}),
		&ir.ExprStmt{Value: &ir.Invoke{
			Kind:   ir.InvokeVirtual,
			Method: ir.MethodRef{Owner: "com/acme/Foo", Name: "use", Desc: "(IILjava/lang/String;)V"},
			Object: load(0, "A", 6),
			Args:   []ir.Instruction{load(1, "I", 7), load(2, "I", 8), load(3, "A", 9)},
		}},
	}
	set := Resolve(m, body, nil, Options{})

	var names []string
	for _, v := range set.Vars {
		names = append(names, v.Name)
	}
	want := []string{"this", "i", "j", "str"}
	if diff := pretty.Diff(names, want); len(diff) > 0 {
		t.Errorf("names = %v, want %v", names, want)
	}
	if v := set.Vars[1]; v.Start != 1 || v.Length != 7 || !v.Declared {
		t.Errorf("Vars[1] = %+v, want range [1, 8) synthesized", v)
	}
}

func TestResolveSlotReuse(t *testing.T) {
	m := Method{Desc: "()V", Static: true, CodeLen: 12}
	use := func(v ir.Instruction) ir.Instruction {
		return &ir.ExprStmt{Value: &ir.Invoke{
			Kind:   ir.InvokeStatic,
			Method: ir.MethodRef{Owner: "com/acme/Foo", Name: "use", Desc: "(Ljava/lang/Object;)V"},
			Args:   []ir.Instruction{v},
		}}
	}
	empty := &ir.Invoke{
		Kind:   ir.InvokeStatic,
		Method: ir.MethodRef{Owner: "java/util/Collections", Name: "emptyList", Desc: "()Ljava/util/List;"},
	}
	body := []ir.Instruction{
		store(1, "Ljava/lang/String;", 1, &ir.Const{Kind: ir.ConstString, Value: "x"}),
		use(load(1, "A", 3)),
		store(1, "Ljava/util/List;", 8, empty),
		use(load(1, "A", 10)),
	}
	set := Resolve(m, body, nil, Options{})

	type variable struct {
		Name, Desc    string
		Start, Length int
	}
	var got []variable
	for _, v := range set.Vars {
		got = append(got, variable{v.Name, v.Desc, v.Start, v.Length})
	}
	want := []variable{
		{"str", "Ljava/lang/String;", 2, 2},
		{"list", "Ljava/util/List;", 9, 2},
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Errorf("Vars differ:\n%v", diff)
	}
	if v := set.Of(body[3].(*ir.ExprStmt).Value.(*ir.Invoke).Args[0]); v == nil || v.Name != "list" {
		t.Errorf("second load resolved to %+v, want list", v)
	}

	n := Declare(&body, set)
	if n != 2 {
		t.Errorf("Declare() = %d, want 2", n)
	}
	if got := ir.SprintNode(body[0]); !strings.HasPrefix(got, "Declaration(Ljava/lang/String; str") {
		t.Errorf("body[0] = %s, want a String declaration", got)
	}
	if got := ir.SprintNode(body[2]); !strings.HasPrefix(got, "Declaration(Ljava/util/List; list") {
		t.Errorf("body[2] = %s, want a List declaration", got)
	}
}

func TestResolveIgnoreTable(t *testing.T) {
	m := Method{
		Desc:    "()V",
		Static:  true,
		CodeLen: 4,
		Table:   []classfile.LocalVariable{{Start: 1, Length: 3, Name: "count", Descriptor: "I", Slot: 0}},
	}
	body := []ir.Instruction{store(0, "I", 0, cint(1)), ret(nil)}
	Resolve(m, body, nil, Options{IgnoreTable: true})
	if got, want := ir.Sprint(body), "Store(0 i, Const(1))\nReturn()\n"; got != want {
		t.Errorf("Resolve() body = %q, want %q", got, want)
	}
}

func TestResolveTableNamesReserved(t *testing.T) {
	// Slot 1 is named by the table only late in the method; the earlier
	// synthesized int must not take its name.
	m := Method{
		Desc:    "()V",
		Static:  true,
		CodeLen: 10,
		Table:   []classfile.LocalVariable{{Start: 6, Length: 4, Name: "i", Descriptor: "I", Slot: 1}},
	}
	body := []ir.Instruction{
		store(0, "I", 0, cint(0)),
		store(1, "I", 5, load(0, "I", 3)),
		ret(nil),
	}
	Resolve(m, body, nil, Options{})
	want := "Store(0 j, Const(0))\nStore(1 i, Load(0 j))\nReturn()\n"
	if got := ir.Sprint(body); got != want {
		t.Errorf("Resolve() body = %q, want %q", got, want)
	}
}

func TestDeclare(t *testing.T) {
	m := Method{Desc: "(Z)I", Static: true, CodeLen: 30}
	cond := func() ir.Instruction { return load(0, "Z", 0) }
	tests := []struct {
		name string
		body func() []ir.Instruction
		want string
	}{
		{
			name: "first store becomes declaration",
			body: func() []ir.Instruction {
				return []ir.Instruction{
					store(1, "I", 1, cint(0)),
					&ir.If{Cond: cond(), Then: []ir.Instruction{store(1, "I", 5, cint(1))}},
					ret(load(1, "I", 9)),
				}
			},
			want: "Declaration(I i, Const(0))\n" +
				"If(Load(0 bool))\n" +
				"  Store(1 i, Const(1))\n" +
				"Return(Load(1 i))\n",
		},
		{
			name: "declared inside the only block using it",
			body: func() []ir.Instruction {
				return []ir.Instruction{
					&ir.If{Cond: cond(), Then: []ir.Instruction{
						store(1, "I", 3, cint(5)),
						ret(load(1, "I", 5)),
					}},
					ret(cint(0)),
				}
			},
			want: "If(Load(0 bool))\n" +
				"  Declaration(I i, Const(5))\n" +
				"  Return(Load(1 i))\n" +
				"Return(Const(0))\n",
		},
		{
			name: "value carried across iterations",
			body: func() []ir.Instruction {
				return []ir.Instruction{
					&ir.While{Cond: cond(), Body: []ir.Instruction{&ir.IInc{Slot: 1, Delta: 1}}},
					ret(cint(0)),
				}
			},
			want: "Declaration(I i)\n" +
				"While(Load(0 bool))\n" +
				"  IInc(1 i, +1)\n" +
				"Return(Const(0))\n",
		},
		{
			name: "assigned first in each iteration",
			body: func() []ir.Instruction {
				return []ir.Instruction{
					&ir.While{Cond: cond(), Body: []ir.Instruction{
						store(1, "I", 4, cint(2)),
						&ir.IInc{Base: ir.Base{Offset: 6}, Slot: 1, Delta: 1},
					}},
					ret(cint(0)),
				}
			},
			want: "While(Load(0 bool))\n" +
				"  Declaration(I i, Const(2))\n" +
				"  IInc(1 i, +1)\n" +
				"Return(Const(0))\n",
		},
		{
			name: "for loop counter",
			body: func() []ir.Instruction {
				return []ir.Instruction{
					&ir.For{
						Init:   []ir.Instruction{store(1, "I", 1, cint(0))},
						Cond:   &ir.Compare{Operator: "<", Left: load(1, "I", 3), Right: cint(10)},
						Update: []ir.Instruction{&ir.IInc{Base: ir.Base{Offset: 8}, Slot: 1, Delta: 1}},
					},
					ret(cint(0)),
				}
			},
			want: "For(Compare(<, Load(1 i), Const(10)))\n" +
				"  Init\n" +
				"    Declaration(I i, Const(0))\n" +
				"  Update\n" +
				"    IInc(1 i, +1)\n" +
				"  Body\n" +
				"Return(Const(0))\n",
		},
		{
			name: "catch variable declares itself",
			body: func() []ir.Instruction {
				return []ir.Instruction{
					&ir.Try{
						Body: []ir.Instruction{ret(cint(1))},
						Catches: []*ir.Catch{{
							Types: []string{"java/lang/Exception"},
							Var:   load(1, "Ljava/lang/Exception;", 4),
							Body:  []ir.Instruction{ret(cint(0))},
						}},
					},
				}
			},
			want: "Try\n" +
				"  Return(Const(1))\n" +
				"Catch(java/lang/Exception Load(1 exception))\n" +
				"  Return(Const(0))\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body()
			set := Resolve(m, body, nil, Options{})
			Declare(&body, set)
			if got := ir.Sprint(body); got != tt.want {
				t.Errorf("Declare() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestDeclareSkipsParameters(t *testing.T) {
	m := Method{Desc: "(I)V", Static: true, CodeLen: 4}
	body := []ir.Instruction{store(0, "I", 0, cint(3)), ret(nil)}
	set := Resolve(m, body, nil, Options{})
	if n := Declare(&body, set); n != 0 {
		t.Errorf("Declare() = %d, want 0", n)
	}
}
