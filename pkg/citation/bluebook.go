// Package citation formats Bluebook case citations from CourtListener
// cluster citation records.
package citation

import (
	"fmt"
	"strings"
)

// TypeOfficial is CourtListener's type code for the official U.S. Reports
// series. Parallel citations (S. Ct., L. Ed.) carry other codes.
const TypeOfficial = 1

// Citation is one parallel citation of a case cluster.
type Citation struct {
	Volume   int    `json:"volume"`
	Reporter string `json:"reporter"`
	Page     string `json:"page"`
	Type     int    `json:"type"`
}

func (c Citation) complete() bool {
	return c.Volume > 0 && strings.TrimSpace(c.Reporter) != "" && strings.TrimSpace(c.Page) != ""
}

// Bluebook renders the preferred citation as "601 U.S. 416 (2024)". The
// official reporter wins over parallel citations; the first citation is the
// fallback. Returns "" when no citation has volume, reporter and page, and
// never invents missing pieces.
func Bluebook(citations []Citation, dateFiled string) string {
	chosen, ok := pick(citations)
	if !ok {
		return ""
	}
	base := fmt.Sprintf("%d %s %s", chosen.Volume, strings.TrimSpace(chosen.Reporter), strings.TrimSpace(chosen.Page))
	if year := yearOf(dateFiled); year != "" {
		return fmt.Sprintf("%s (%s)", base, year)
	}
	return base
}

// Full renders "Case Name, 601 U.S. 416 (2024)", degrading to the bare
// citation or the bare case name when one side is missing.
func Full(caseName string, citations []Citation, dateFiled string) string {
	cite := Bluebook(citations, dateFiled)
	name := strings.TrimSpace(caseName)
	switch {
	case name == "":
		return cite
	case cite == "":
		return name
	}
	return name + ", " + cite
}

func pick(citations []Citation) (Citation, bool) {
	for _, c := range citations {
		if c.Type == TypeOfficial && c.complete() {
			return c, true
		}
	}
	for _, c := range citations {
		if c.complete() {
			return c, true
		}
	}
	return Citation{}, false
}

func yearOf(dateFiled string) string {
	if len(dateFiled) < 4 {
		return ""
	}
	year := dateFiled[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return year
}
