package parser

import (
	"fmt"
	"testing"
)

func TestStringIntern(t *testing.T) {
	si := NewStringIntern()

	s1 := si.Intern("arm")
	s2 := si.Intern(string([]byte("arm")))
	if s1 != s2 {
		t.Error("Expected interned strings to be equal")
	}

	si.Intern("takeoff")
	if si.Len() != 2 {
		t.Errorf("Expected pool size 2, got %d", si.Len())
	}

	si.Clear()
	if si.Len() != 0 {
		t.Errorf("Expected pool size 0 after clear, got %d", si.Len())
	}
}

func TestStringInternBounded(t *testing.T) {
	si := NewStringIntern()
	for i := 0; i < MaxInternPoolSize+10; i++ {
		s := fmt.Sprintf("type-%d", i)
		if got := si.Intern(s); got != s {
			t.Fatalf("Intern(%q) = %q", s, got)
		}
	}
	if si.Len() != MaxInternPoolSize {
		t.Errorf("Expected pool size %d, got %d", MaxInternPoolSize, si.Len())
	}
}

func BenchmarkStringIntern(b *testing.B) {
	si := NewStringIntern()
	types := []string{"arm", "takeoff", "mission", "land", "disarm"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		si.Intern(types[i%len(types)])
	}
}
