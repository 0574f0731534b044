package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openretreat/office-sync/internal/dto"
)

// linkPattern matches inline markdown-style links. The label is
// non-greedy and may span newlines; the url runs greedily up to the
// closing parenthesis.
var linkPattern = regexp.MustCompile(`(?s)\[(.+?)\]\(([^)]+?)\)`)

// iconKeywords is scanned in order; the first keyword contained in a
// URL decides the icon. Purely cosmetic, never a validation gate.
var iconKeywords = []string{"confluence", "jira", "mural", "slack", "miro", "zoom", "discord"}

// LinkExtractor parses free-text link cells into structured room links.
type LinkExtractor struct {
	iconBaseURL string
}

func NewLinkExtractor(iconBaseURL string) *LinkExtractor {
	return &LinkExtractor{iconBaseURL: strings.TrimRight(iconBaseURL, "/")}
}

// Extract returns every markdown link in the text, in source order.
// Text without links yields an empty list.
func (e *LinkExtractor) Extract(text string) []dto.RoomLink {
	matches := linkPattern.FindAllStringSubmatch(text, -1)

	links := make([]dto.RoomLink, 0, len(matches))
	for _, match := range matches {
		links = append(links, dto.RoomLink{
			Text: match[1],
			Href: match[2],
			Icon: e.IconURLFor(match[2]),
		})
	}
	return links
}

// IconURLFor returns the icon URL for the first known product keyword
// found in the url, or "" when none matches.
func (e *LinkExtractor) IconURLFor(url string) string {
	for _, keyword := range iconKeywords {
		if strings.Contains(url, keyword) {
			return fmt.Sprintf("%s/%s-icon.png", e.iconBaseURL, keyword)
		}
	}
	return ""
}
