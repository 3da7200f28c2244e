package pos

import "testing"

func TestSpanMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want Span
	}{
		{"disjoint", NewSpan(0, 5), NewSpan(10, 15), NewSpan(0, 15)},
		{"nested", NewSpan(0, 20), NewSpan(5, 10), NewSpan(0, 20)},
		{"overlap", NewSpan(5, 12), NewSpan(10, 18), NewSpan(5, 18)},
		{"reversed args", NewSpan(10, 15), NewSpan(0, 5), NewSpan(0, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Merge(tt.b); got != tt.want {
				t.Fatalf("Merge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanContains(t *testing.T) {
	s := NewSpan(5, 10)
	if !s.Contains(5) || !s.Contains(9) {
		t.Fatal("span excludes its interior")
	}
	if s.Contains(10) {
		t.Fatal("span is half-open; End is outside")
	}
	if s.Contains(4) {
		t.Fatal("span includes a point before Start")
	}
}

func TestLocationAt(t *testing.T) {
	src := "let x = 1\nlet y = 2\n"
	tests := []struct {
		p    BytePos
		want Location
	}{
		{0, Location{Line: 1, Column: 1}},
		{4, Location{Line: 1, Column: 5}},
		{10, Location{Line: 2, Column: 1}},
		{14, Location{Line: 2, Column: 5}},
	}
	for _, tt := range tests {
		if got := LocationAt(src, tt.p); got != tt.want {
			t.Errorf("LocationAt(%d) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestSpannedAt(t *testing.T) {
	sp := At(NewSpan(1, 4), "abc")
	if sp.Span != NewSpan(1, 4) || sp.Value != "abc" {
		t.Fatalf("At = %+v", sp)
	}
}
