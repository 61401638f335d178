// Package literature searches external scholarly indexes and merges their
// results into one de-duplicated list of papers.
package literature

import (
	"strings"
	"time"
	"unicode"
)

// Paper is a search hit normalized across sources.
type Paper struct {
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Abstract    string     `json:"abstract,omitempty"`
	DOI         string     `json:"doi,omitempty"`
	URL         string     `json:"url,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Year        int        `json:"year,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Citations   *int       `json:"citations,omitempty"`
	// AlsoIn lists the other sources that returned the same paper.
	AlsoIn []string `json:"also_in,omitempty"`
}

// NormalizeDOI lowercases doi and strips resolver prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}

// normalizeTitle keeps lowercase letters and digits so punctuation and
// spacing differences between sources do not matter.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// key identifies a paper across sources: its DOI when known, else its title.
func (p Paper) key() string {
	if doi := NormalizeDOI(p.DOI); doi != "" {
		return "doi:" + doi
	}
	return "title:" + normalizeTitle(p.Title)
}

// absorb fills fields p lacks from other.
func (p *Paper) absorb(other Paper) {
	if p.Abstract == "" {
		p.Abstract = other.Abstract
	}
	if p.DOI == "" {
		p.DOI = other.DOI
	}
	if p.URL == "" {
		p.URL = other.URL
	}
	if p.Venue == "" {
		p.Venue = other.Venue
	}
	if p.Year == 0 {
		p.Year = other.Year
	}
	if p.PublishedAt == nil {
		p.PublishedAt = other.PublishedAt
	}
	if len(p.Authors) == 0 {
		p.Authors = other.Authors
	}
	if other.Citations != nil && (p.Citations == nil || *other.Citations > *p.Citations) {
		p.Citations = other.Citations
	}
	p.AlsoIn = append(p.AlsoIn, other.Source)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
