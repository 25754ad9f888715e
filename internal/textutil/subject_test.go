package textutil

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and splits", "Lighthouse at Dusk, West Pier!", []string{"lighthouse", "dusk", "west", "pier"}},
		{"drops short tokens", "a an to sea", []string{"sea"}},
		{"keeps digits", "ferry timetable 1987", []string{"ferry", "timetable", "1987"}},
		{"empty", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("tokens = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("tokens = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNewSubjectEmptyTextIsNil(t *testing.T) {
	if s := NewSubject("a to it"); s != nil {
		t.Fatalf("subject = %+v", s)
	}
	if NewSubject("").TokenCount() != 0 {
		t.Fatal("nil subject token count must be 0")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := NewSubject("lighthouse west pier dusk")
	b := NewSubject("lighthouse west pier dusk")
	c := NewSubject("ferry timetable scan")

	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical subjects similarity = %v", got)
	}
	if got := CosineSimilarity(a, c); got != 0 {
		t.Fatalf("disjoint subjects similarity = %v", got)
	}
	if got := CosineSimilarity(a, nil); got != 0 {
		t.Fatalf("nil subject similarity = %v", got)
	}

	d := NewSubject("lighthouse harbour wall")
	got := CosineSimilarity(a, d)
	if got <= 0 || got >= 1 {
		t.Fatalf("partial overlap similarity = %v", got)
	}
}
