package services

import (
	"regexp"
	"strings"

	"github.com/desertthunder/qcat/internal/models"
)

const defaultPermalinkDomain = "qobuz.com"

type permalinkPattern struct {
	hint models.EntityHint
	re   *regexp.Regexp
}

// Classifier recognizes album, track and artist permalinks in free text.
type Classifier struct {
	patterns []permalinkPattern
}

// NewClassifier compiles the permalink patterns for domain ("qobuz.com" when empty).
//
// Albums use alphanumeric ids, tracks and artists numeric ids. Both the play. and open.
// hosts are accepted.
func NewClassifier(domain string) *Classifier {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		domain = defaultPermalinkDomain
	}
	prefix := `https://(?:play|open)\.` + regexp.QuoteMeta(domain)

	return &Classifier{patterns: []permalinkPattern{
		{hint: models.HintAlbum, re: regexp.MustCompile(prefix + `/album/([a-zA-Z0-9]+)`)},
		{hint: models.HintTrack, re: regexp.MustCompile(prefix + `/track/(\d+)`)},
		{hint: models.HintArtist, re: regexp.MustCompile(prefix + `/artist/(\d+)`)},
	}}
}

// Classify trims raw and tries the album, track and artist patterns in that order.
//
// The first match yields its id and hint. Without a match the input is a free-text term.
func (c *Classifier) Classify(raw string) models.ClassifiedQuery {
	text := strings.TrimSpace(raw)
	for _, p := range c.patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return models.ClassifiedQuery{Term: m[1], Hint: p.hint}
		}
	}
	return models.ClassifiedQuery{Term: raw, Hint: models.HintNone}
}
