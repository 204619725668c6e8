// Package embedding implements the deterministic hash pseudo-embedding and the
// vector arithmetic used by the index and the search engine.
package embedding

import (
	"math"
	"strings"
	"unicode/utf16"
)

const (
	// Dimensions is the fixed length of every pseudo-embedding.
	Dimensions = 100
	// spread is the number of consecutive slots a single tag contributes to.
	spread = 10

	// LexicalWeight and ImageWeight are the combination weights of a product vector.
	LexicalWeight = 0.6
	ImageWeight   = 0.4
)

// Vector is a pseudo-embedding.
type Vector []float64

// Hash maps a tag onto a base slot in [0, Dimensions).
// It is the 32-bit "h*31 + c" rolling hash over UTF-16 code units of the
// lower-cased tag, so it reproduces bit-for-bit across implementations.
// U+0130 lowers to "i" plus a combining dot above, as in ECMAScript's
// toLowerCase; the context-sensitive final sigma rule is not applied.
func Hash(tag string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(lower(tag))) {
		h = (h << 5) - h + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % Dimensions)
}

var dottedCapitalI = strings.NewReplacer("\u0130", "i\u0307")

func lower(tag string) string {
	return strings.ToLower(dottedCapitalI.Replace(tag))
}

// FromTags builds the L2-normalized pseudo-embedding of a tag list.
// An empty list yields the zero vector.
func FromTags(tags []string) Vector {
	v := make(Vector, Dimensions)
	for _, tag := range tags {
		base := Hash(tag)
		for i := 0; i < spread; i++ {
			v[(base+i)%Dimensions] += 1 / float64(i+1)
		}
	}
	return Normalize(v)
}

// Norm returns the Euclidean norm.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func Normalize(v Vector) Vector {
	out := make(Vector, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Cosine returns dot(a,b)/(|a||b|); 0 when either norm is zero or lengths differ.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Scale returns k*v.
func Scale(v Vector, k float64) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x * k
	}
	return out
}

// Add returns a+b component-wise. Lengths must match.
func Add(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Average returns the component-wise mean of vs, or nil for an empty list.
func Average(vs []Vector) Vector {
	if len(vs) == 0 {
		return nil
	}
	out := make(Vector, len(vs[0]))
	for _, v := range vs {
		for i := range out {
			out[i] += v[i]
		}
	}
	return Scale(out, 1/float64(len(vs)))
}

// Combine merges a lexical vector with the vectors of a product's images:
// normalize(0.6*lexical + 0.4*mean(images)).
// Without images the lexical vector is still scaled by 0.6 before normalizing;
// the scale vanishes under normalization and is kept only to mirror the image path.
func Combine(lexical Vector, images []Vector) Vector {
	combined := Scale(lexical, LexicalWeight)
	if len(images) > 0 {
		combined = Add(combined, Scale(Average(images), ImageWeight))
	}
	return Normalize(combined)
}
