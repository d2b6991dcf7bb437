package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("hello world"), 0},
		{"b nil", NewFingerprint("hello world"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "Thank you for watching"
	got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text))
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityIgnoresCaseAndPunctuation(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("Thank you for watching!"), NewFingerprint("thank you, for watching"))
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CosineSimilarity = %v, want 1.0", got)
	}
}

func TestCosineSimilarityCompleteDifferent(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("apple banana cherry"), NewFingerprint("dog elephant frog"))
	if got != 0 {
		t.Errorf("CosineSimilarity(different) = %v, want 0", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	a := NewFingerprint("the quick brown fox")
	b := NewFingerprint("the slow brown cat")

	got := CosineSimilarity(a, b)
	if got <= 0 || got >= 1 {
		t.Errorf("CosineSimilarity(partial) = %v, want between 0 and 1", got)
	}
	if got != CosineSimilarity(b, a) {
		t.Errorf("CosineSimilarity is not symmetric")
	}
}

func TestNearDuplicate(t *testing.T) {
	a := NewFingerprint("I'm going to the store")
	if !NearDuplicate(a, NewFingerprint("I'm going to the store."), 0.9) {
		t.Error("expected near duplicate")
	}
	if NearDuplicate(a, NewFingerprint("we went home early"), 0.9) {
		t.Error("expected distinct lines")
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	if fp := NewFingerprint(""); fp != nil {
		t.Errorf("NewFingerprint(\"\") = %v, want nil", fp)
	}
	if fp := NewFingerprint("a b c ..."); fp != nil {
		t.Errorf("expected nil for single-rune tokens, got %v", fp)
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "la la land": la=2, land=1, norm = sqrt(4+1)
	fp := NewFingerprint("la la land")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, math.Sqrt(5))
	}
	if fp.TokenCount() != 2 {
		t.Errorf("TokenCount() = %d, want 2", fp.TokenCount())
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "simple words", input: "Hello World", want: []string{"hello", "world"}},
		{name: "filters single runes", input: "a to the fox", want: []string{"to", "the", "fox"}},
		{name: "handles punctuation", input: "Hello, World! How are you?", want: []string{"hello", "world", "how", "are", "you"}},
		{name: "handles numbers", input: "test123 456test", want: []string{"test123", "456test"}},
		{name: "keeps accented letters", input: "Déjà vu", want: []string{"déjà", "vu"}},
		{name: "unspaced script", input: "你好，世界", want: []string{"你好", "世界"}},
		{name: "empty string", input: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v (len %d), want %v (len %d)",
					got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
