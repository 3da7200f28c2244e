package kinds

import (
	"errors"
	"testing"
)

func TestKindStrings(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Type, "Type"},
		{Row, "Row"},
		{KArrow{Arg: Type, Ret: Type}, "(Type -> Type)"},
		{KArrow{Arg: KArrow{Arg: Type, Ret: Type}, Ret: Row}, "((Type -> Type) -> Row)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMakeArrow(t *testing.T) {
	k := MakeArrow(Type, Type, Type)
	ar, ok := k.(KArrow)
	if !ok {
		t.Fatalf("got %s, want an arrow", k)
	}
	if !ar.Arg.Equal(Type) {
		t.Fatalf("first argument = %s, want Type", ar.Arg)
	}
	inner, ok := ar.Ret.(KArrow)
	if !ok || !inner.Ret.Equal(Type) {
		t.Fatalf("arrow does not right-associate: %s", k)
	}
}

func TestUnifyKinds(t *testing.T) {
	u := NewUnifier()
	if err := u.Unify(Type, Type); err != nil {
		t.Fatalf("Type with Type: %v", err)
	}
	if err := u.Unify(Type, Row); err == nil {
		t.Fatal("Type unified with Row")
	}

	v := u.Fresh()
	if err := u.Unify(v, MakeArrow(Type, Type)); err != nil {
		t.Fatalf("binding kind var: %v", err)
	}
	got := u.Subst.Apply(v)
	if !got.Equal(MakeArrow(Type, Type)) {
		t.Fatalf("var resolved to %s, want Type -> Type", got)
	}
}

func TestUnifyKindOccurs(t *testing.T) {
	u := NewUnifier()
	v := u.Fresh()
	err := u.Unify(v, MakeArrow(v, Type))
	var occ *OccursError
	if !errors.As(err, &occ) {
		t.Fatalf("expected occurs error, got %v", err)
	}
}

func TestDefaultingFillsType(t *testing.T) {
	u := NewUnifier()
	v := u.Fresh()
	w := u.Fresh()
	if err := u.Unify(v, MakeArrow(w, Type)); err != nil {
		t.Fatalf("unify: %v", err)
	}
	got := u.Subst.Default(u.Subst.Apply(v))
	want := MakeArrow(Type, Type)
	if !got.Equal(want) {
		t.Fatalf("defaulted kind = %s, want %s", got, want)
	}
}

func TestHoleUnifiesWithAnything(t *testing.T) {
	u := NewUnifier()
	if err := u.Unify(Hole, MakeArrow(Type, Row)); err != nil {
		t.Fatalf("hole should absorb: %v", err)
	}
}
