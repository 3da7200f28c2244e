package vm

import "testing"

func TestFieldMapStableTags(t *testing.T) {
	fm := NewFieldMap()
	xy := fm.Tag([]string{"x", "y"})
	if again := fm.Tag([]string{"x", "y"}); again != xy {
		t.Fatalf("same field set produced tags %d and %d", xy, again)
	}
	yz := fm.Tag([]string{"y", "z"})
	if yz == xy {
		t.Fatalf("different field sets share tag %d", xy)
	}
}

func TestFieldMapOffsets(t *testing.T) {
	fm := NewFieldMap()
	tag := fm.Tag([]string{"a", "b", "c"})
	tests := []struct {
		field string
		want  int
	}{
		{"a", 0},
		{"b", 1},
		{"c", 2},
	}
	for _, tt := range tests {
		got, ok := fm.Offset(tag, tt.field)
		if !ok || got != tt.want {
			t.Errorf("Offset(%s) = %d, %v; want %d", tt.field, got, ok, tt.want)
		}
	}
	if _, ok := fm.Offset(tag, "d"); ok {
		t.Error("offset reported for an absent field")
	}
}

func TestFieldMapFieldsRoundTrip(t *testing.T) {
	fm := NewFieldMap()
	tag := fm.Tag([]string{"name", "age"})
	fields, ok := fm.Fields(tag)
	if !ok {
		t.Fatal("tag has no fields")
	}
	if len(fields) != 2 || fields[0] != "name" || fields[1] != "age" {
		t.Fatalf("fields = %v", fields)
	}
	if _, ok := fm.Fields(999); ok {
		t.Fatal("unknown tag reported fields")
	}
}
