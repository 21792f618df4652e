// Package extractor pulls a two-letter US state code out of free text.
package extractor

import (
	"regexp"
	"sort"
	"strings"
)

// validCodes holds the 50 states plus DC.
var validCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true,
	"KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true, "NY": true,
	"NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

// commonWords are two-letter English words that are never read as a code.
// None of them is a valid code.
var commonWords = map[string]bool{
	"US": true, "AN": true, "BY": true, "AS": true, "AT": true, "IS": true,
	"IT": true, "TO": true, "DO": true, "GO": true, "NO": true, "SO": true,
	"UP": true, "WE": true, "BE": true, "MY": true, "OF": true, "ON": true,
	"AM": true, "IF": true,
}

// ambiguousCodes are valid codes that are also everyday words. They count
// only when written in capitals, and on their own only as the whole input.
var ambiguousCodes = map[string]bool{
	"IN": true, "OR": true, "ME": true, "HI": true, "OH": true, "OK": true,
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "florida": "FL", "georgia": "GA",
	"hawaii": "HI", "idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC", "washington dc": "DC", "washington d.c.": "DC",

	// major cities that imply a state
	"atlanta": "GA", "los angeles": "CA", "san francisco": "CA", "san diego": "CA",
	"houston": "TX", "dallas": "TX", "austin": "TX", "miami": "FL", "orlando": "FL",
	"phoenix": "AZ", "denver": "CO", "seattle": "WA", "chicago": "IL", "boston": "MA",
	"nashville": "TN", "philadelphia": "PA", "detroit": "MI", "las vegas": "NV",
}

var contextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bin\s+([a-z]{2})\b`),
	regexp.MustCompile(`(?i)\bfrom\s+([a-z]{2})\b`),
	regexp.MustCompile(`(?i)\bstate\s+([a-z]{2})\b`),
	regexp.MustCompile(`(?i)\bof\s+([a-z]{2})\b`),
	regexp.MustCompile(`(?i)\blive\s+in\s+([a-z]{2})\b`),
	regexp.MustCompile(`(?i)\bdoctors?\s+in\s+([a-z]{2})\b`),
	regexp.MustCompile(`(?i)\b([a-z]{2})\s+doctors?\b`),
	regexp.MustCompile(`(?i)\b([a-z]{2})\s+area\b`),
	regexp.MustCompile(`(?i)\b([a-z]{2})\s+state\b`),
}

var bareCode = regexp.MustCompile(`\b[A-Z]{2}\b`)

// maxStandaloneWords bounds the inputs on which a bare code is trusted.
const maxStandaloneWords = 5

// Extractor maps text to a state code, preferring silence over a wrong guess.
// It holds only read-only tables and is safe for concurrent use.
type Extractor struct {
	names []string
}

func New() *Extractor {
	names := make([]string, 0, len(stateNames))
	for name := range stateNames {
		names = append(names, name)
	}
	// longest first so "west virginia" wins over "virginia"
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return &Extractor{names: names}
}

// Extract returns the state code found in text and whether one was found.
func (e *Extractor) Extract(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	if code, ok := e.matchName(text); ok {
		return code, true
	}
	if code, ok := matchContext(text); ok {
		return code, true
	}
	return matchStandalone(text)
}

func (e *Extractor) matchName(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, name := range e.names {
		if strings.Contains(lower, name) {
			return stateNames[name], true
		}
	}
	return "", false
}

func matchContext(text string) (string, bool) {
	for _, pattern := range contextPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			code := strings.ToUpper(m[1])
			if !IsAcceptable(code) {
				continue
			}
			if ambiguousCodes[code] && m[1] != code {
				continue
			}
			return code, true
		}
	}
	return "", false
}

func matchStandalone(text string) (string, bool) {
	if len(strings.Fields(text)) > maxStandaloneWords {
		return "", false
	}
	whole := strings.TrimSpace(text)
	for _, token := range bareCode.FindAllString(text, -1) {
		if !IsAcceptable(token) {
			continue
		}
		if ambiguousCodes[token] && token != whole {
			continue
		}
		return token, true
	}
	return "", false
}

// IsValid reports whether code is one of the 50 state codes or DC.
func IsValid(code string) bool {
	return validCodes[strings.ToUpper(code)]
}

// IsAcceptable reports whether code is valid and not a common English word.
func IsAcceptable(code string) bool {
	upper := strings.ToUpper(code)
	return validCodes[upper] && !commonWords[upper]
}
