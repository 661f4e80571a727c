package service

import (
	"testing"

	"DayPulse/internal/model"
)

func TestNormalizeEmotionName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Anxious", "anxious"},
		{"  anxious ", "anxious"},
		{"HAPPY", "happy"},
		{"\tCalm\n", "calm"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeEmotionName(tc.in); got != tc.want {
			t.Fatalf("NormalizeEmotionName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCatalogResolve(t *testing.T) {
	catalog := NewCatalog([]model.Emotion{
		{Name: "Anxious", Emoji: "😰"},
		{Name: "Happy", Emoji: "😊"},
	})

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Anxious", "Anxious", true},
		{"  anxious ", "Anxious", true},
		{"HAPPY", "Happy", true},
		{"joyful", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		e, ok := catalog.Resolve(tc.in)
		if ok != tc.ok {
			t.Fatalf("Resolve(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && e.Name != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.in, e.Name, tc.want)
		}
	}
}

func TestCatalogNilSafe(t *testing.T) {
	var catalog *Catalog
	if _, ok := catalog.Resolve("Happy"); ok {
		t.Fatalf("nil catalog must not resolve anything")
	}
	if items := catalog.Items(); items != nil {
		t.Fatalf("nil catalog must return no items, got %v", items)
	}
}
