package services

import (
	"testing"

	"github.com/desertthunder/qcat/internal/models"
)

func TestClassifier(t *testing.T) {
	c := NewClassifier("example.com")

	tt := []struct {
		name string
		in   string
		term string
		hint models.EntityHint
	}{
		{name: "album permalink", in: "https://open.example.com/album/ABC123", term: "ABC123", hint: models.HintAlbum},
		{name: "track permalink", in: "https://play.example.com/track/99999", term: "99999", hint: models.HintTrack},
		{name: "artist permalink", in: "https://open.example.com/artist/42", term: "42", hint: models.HintArtist},
		{name: "plain text", in: "daft punk", term: "daft punk", hint: models.HintNone},
		{name: "surrounding whitespace", in: "  https://play.example.com/album/XYZ1  ", term: "XYZ1", hint: models.HintAlbum},
		{name: "trailing path", in: "https://open.example.com/album/abc9/extra?x=1", term: "abc9", hint: models.HintAlbum},
		{name: "non numeric track id", in: "https://play.example.com/track/abc", term: "https://play.example.com/track/abc", hint: models.HintNone},
		{name: "other host", in: "https://www.example.com/album/ABC", term: "https://www.example.com/album/ABC", hint: models.HintNone},
		{name: "plain http", in: "http://open.example.com/album/ABC", term: "http://open.example.com/album/ABC", hint: models.HintNone},
		{name: "embedded in text", in: "listen https://open.example.com/artist/7 now", term: "7", hint: models.HintArtist},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.in)
			if got.Term != tc.term || got.Hint != tc.hint {
				t.Errorf("Classify(%q) = {%q %q}, want {%q %q}", tc.in, got.Term, got.Hint, tc.term, tc.hint)
			}
		})
	}

	t.Run("default domain", func(t *testing.T) {
		got := NewClassifier("").Classify("https://open.qobuz.com/album/0060254728690")
		if got.Hint != models.HintAlbum || got.Term != "0060254728690" {
			t.Errorf("unexpected classification %+v", got)
		}

		if NewClassifier("").Classify("https://open.example.com/album/ABC").Hint != models.HintNone {
			t.Error("expected other domains to be free text")
		}
	})

	t.Run("domain is literal", func(t *testing.T) {
		if c.Classify("https://open.exampleXcom/album/ABC").Hint != models.HintNone {
			t.Error("expected the dot in the domain to be matched literally")
		}
	})

	t.Run("album pattern wins", func(t *testing.T) {
		got := c.Classify("https://play.example.com/track/1 https://play.example.com/album/A1")
		if got.Hint != models.HintAlbum || got.Term != "A1" {
			t.Errorf("expected album to take precedence, got %+v", got)
		}
	})
}
