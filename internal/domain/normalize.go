package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	punctToSpaceRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	multiSpaceRegex   = regexp.MustCompile(`\s+`)
)

// diacriticStripper decomposes text and drops combining marks, so that
// "jalebī" and "jalebi" normalize to the same string. Devanagari text keeps
// its base characters and remains matchable against Devanagari aliases.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a name, alias, or customer phrase for comparison:
// lower-case, diacritics stripped, punctuation folded to spaces, whitespace
// collapsed. Normalization is pure; equal inputs always normalize equally.
func Normalize(s string) string {
	out := strings.ToLower(s)
	if stripped, _, err := transform.String(diacriticStripper, out); err == nil {
		out = stripped
	}
	out = punctToSpaceRegex.ReplaceAllString(out, " ")
	out = multiSpaceRegex.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// TokenizeName splits a normalized string into word tokens, dropping
// single-rune fragments that carry no matching signal.
func TokenizeName(s string) []string {
	fields := strings.Fields(Normalize(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}
