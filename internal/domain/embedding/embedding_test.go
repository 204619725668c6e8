package embedding

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestHash_KnownValues(t *testing.T) {
	tests := []struct {
		tag  string
		want int
	}{
		{"silk", 25},
		{"SILK", 25},
		{"weaving", 83},
		{"silk saree", 15},
		{"hand weaving", 78},
		{"साड़ी", 21},
		{"İstanbul", 19},
		{"istanbul", 34},
		{"", 0},
	}
	for _, tc := range tests {
		if got := Hash(tc.tag); got != tc.want {
			t.Errorf("Hash(%q) = %d, want %d", tc.tag, got, tc.want)
		}
	}
}

func TestHash_InRange(t *testing.T) {
	long := make([]rune, 5000)
	for i := range long {
		long[i] = rune('a' + i%26)
	}
	for _, tag := range []string{string(long), "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "￿￿￿"} {
		h := Hash(tag)
		if h < 0 || h >= Dimensions {
			t.Errorf("Hash(%q...) = %d out of range", tag[:3], h)
		}
	}
}

func TestFromTags_Deterministic(t *testing.T) {
	a := FromTags([]string{"silk", "weaving"})
	b := FromTags([]string{"silk", "weaving"})
	if len(a) != Dimensions {
		t.Fatalf("len = %d, want %d", len(a), Dimensions)
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFromTags_OrderIndependent(t *testing.T) {
	a := FromTags([]string{"silk", "weaving", "indigo"})
	b := FromTags([]string{"indigo", "silk", "weaving"})
	for i := range a {
		if math.Abs(a[i]-b[i]) > tolerance {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFromTags_Normalized(t *testing.T) {
	cases := [][]string{
		{"silk"},
		{"silk", "weaving"},
		{"a", "b", "c", "d", "e", "f"},
		{"same", "same", "same"},
	}
	for _, tags := range cases {
		if n := Norm(FromTags(tags)); math.Abs(n-1) > tolerance {
			t.Errorf("norm(%v) = %v, want 1", tags, n)
		}
	}
}

func TestFromTags_EmptyIsZero(t *testing.T) {
	v := FromTags(nil)
	if len(v) != Dimensions {
		t.Fatalf("len = %d", len(v))
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("component %d = %v, want 0", i, x)
		}
	}
}

func TestFromTags_Layout(t *testing.T) {
	// A single tag occupies ten consecutive slots with weights 1, 1/2, ... 1/10.
	v := FromTags([]string{"silk"})
	base := Hash("silk")
	if v[base] <= v[base+1] || v[base+9] <= 0 {
		t.Fatalf("unexpected layout around %d: %v", base, v[base:base+10])
	}
	if v[(base+10)%Dimensions] != 0 {
		t.Errorf("slot after window should be empty, got %v", v[(base+10)%Dimensions])
	}
	ratio := v[base] / v[base+1]
	if math.Abs(ratio-2) > tolerance {
		t.Errorf("v[h]/v[h+1] = %v, want 2", ratio)
	}
}

func TestCosine_Bounds(t *testing.T) {
	vs := []Vector{
		FromTags([]string{"silk"}),
		FromTags([]string{"weaving", "indigo"}),
		FromTags([]string{"brass", "lamp", "kerala"}),
		Scale(FromTags([]string{"pottery"}), -1),
	}
	for i := range vs {
		if s := Cosine(vs[i], vs[i]); math.Abs(s-1) > tolerance {
			t.Errorf("self similarity %d = %v", i, s)
		}
		for j := range vs {
			s := Cosine(vs[i], vs[j])
			if s < -1-tolerance || s > 1+tolerance {
				t.Errorf("Cosine(%d,%d) = %v out of [-1,1]", i, j, s)
			}
		}
	}
}

func TestCosine_ZeroNormAndMismatch(t *testing.T) {
	zero := make(Vector, Dimensions)
	v := FromTags([]string{"silk"})
	if s := Cosine(zero, v); s != 0 {
		t.Errorf("zero vector similarity = %v", s)
	}
	if s := Cosine(v, zero); s != 0 {
		t.Errorf("zero vector similarity = %v", s)
	}
	if s := Cosine(v, v[:50]); s != 0 {
		t.Errorf("length mismatch similarity = %v", s)
	}
}

func TestNormalize_DoesNotAlias(t *testing.T) {
	v := Vector{3, 4}
	n := Normalize(v)
	if v[0] != 3 || v[1] != 4 {
		t.Fatalf("input mutated: %v", v)
	}
	if math.Abs(n[0]-0.6) > tolerance || math.Abs(n[1]-0.8) > tolerance {
		t.Errorf("Normalize = %v", n)
	}
}

func TestAverage(t *testing.T) {
	avg := Average([]Vector{{1, 0}, {0, 1}, {2, 2}})
	if math.Abs(avg[0]-1) > tolerance || math.Abs(avg[1]-1) > tolerance {
		t.Errorf("Average = %v", avg)
	}
	if Average(nil) != nil {
		t.Error("Average(nil) should be nil")
	}
}

func TestCombine_LexicalOnly(t *testing.T) {
	lex := FromTags([]string{"silk", "saree"})
	got := Combine(lex, nil)
	for i := range lex {
		if math.Abs(got[i]-lex[i]) > tolerance {
			t.Fatalf("component %d: %v vs %v", i, got[i], lex[i])
		}
	}
}

func TestCombine_WithImages(t *testing.T) {
	lex := Vector{1, 0, 0}
	img1 := Vector{0, 1, 0}
	img2 := Vector{0, 0, 1}

	got := Combine(lex, []Vector{img1, img2})

	// 0.6*lex + 0.4*avg = (0.6, 0.2, 0.2), normalized.
	n := math.Sqrt(0.36 + 0.04 + 0.04)
	want := Vector{0.6 / n, 0.2 / n, 0.2 / n}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("component %d = %v, want %v", i, got[i], want[i])
		}
	}
	if math.Abs(Norm(got)-1) > tolerance {
		t.Errorf("combined norm = %v", Norm(got))
	}
}

func TestCombine_Deterministic(t *testing.T) {
	lex := FromTags([]string{"Handwoven Silk Saree"})
	imgs := []Vector{FromTags([]string{"vibrant colors", "hand weaving"})}
	a := Combine(lex, imgs)
	b := Combine(lex, imgs)
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Fatalf("component %d differs", i)
		}
	}
}
