// Package sources extracts citation records from generated text.
package sources

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxSources caps the number of citations returned per extraction.
const MaxSources = 10

// Kind classifies a citation.
type Kind string

const (
	KindLink      Kind = "link"
	KindReference Kind = "reference"
	KindAcademic  Kind = "academic"
	KindNews      Kind = "news"
	KindOfficial  Kind = "official"
)

// Source is one citation record.
type Source struct {
	DisplayText string `json:"display_text"`
	URL         string `json:"url,omitempty"`
	Kind        Kind   `json:"kind"`
	Date        string `json:"date,omitempty"`
}

// Pattern classes, applied in this order.
var (
	markdownLinkRE = regexp.MustCompile(`\[([^\]]+)\]\(((?:[^()\s]|\([^()\s]*\))+)\)`)
	prefixedURLRE  = regexp.MustCompile(`(?i)(?:fuente|source|según|segun|from|via)\s*:\s*(https?://(?:[^\s()\]>]|\([^\s()\]>]*\))+)`)
	academicRE     = regexp.MustCompile(`\(([^(),]+(?:et al\.)?),\s*(\d{4})\)`)
	newsRE         = regexp.MustCompile(`(?i)(?:según|segun|according to)\s+([^,\n]+),\s*(\d{1,2}/\d{1,2}/\d{4})`)
	bareURLRE      = regexp.MustCompile(`https?://(?:[^\s()\]>"']|\([^\s()\]>"']*\))+`)
)

// Extract returns the deduplicated citations found in text, in pattern-class
// order and then match order, capped at MaxSources.
func Extract(text string) []Source {
	var out []Source
	seenPair := map[[2]string]bool{}
	seenURL := map[string]bool{}

	add := func(s Source) {
		key := [2]string{s.DisplayText, s.URL}
		if s.DisplayText == "" || seenPair[key] {
			return
		}
		seenPair[key] = true
		if s.URL != "" {
			seenURL[s.URL] = true
		}
		out = append(out, s)
	}

	// addURL skips URLs already cited under a label by an earlier pattern.
	addURL := func(raw string) {
		u := trimURL(raw)
		if u == "" || seenURL[u] {
			return
		}
		add(Source{DisplayText: DomainName(u), URL: u, Kind: Classify(u)})
	}

	for _, m := range markdownLinkRE.FindAllStringSubmatch(text, -1) {
		label, target := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if isHTTP(target) {
			add(Source{DisplayText: label, URL: target, Kind: Classify(target)})
		} else {
			add(Source{DisplayText: label, Kind: KindReference})
		}
	}

	for _, m := range prefixedURLRE.FindAllStringSubmatch(text, -1) {
		addURL(m[1])
	}

	for _, m := range academicRE.FindAllStringSubmatch(text, -1) {
		author := strings.TrimSpace(m[1])
		if isHTTP(author) {
			continue
		}
		add(Source{DisplayText: author + " (" + m[2] + ")", Kind: KindAcademic, Date: m[2]})
	}

	for _, m := range newsRE.FindAllStringSubmatch(text, -1) {
		add(Source{DisplayText: strings.TrimSpace(m[1]), Kind: KindNews, Date: m[2]})
	}

	for _, raw := range bareURLRE.FindAllString(text, -1) {
		addURL(raw)
	}

	if len(out) > MaxSources {
		out = out[:MaxSources]
	}
	return out
}

func isHTTP(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// trimURL drops sentence punctuation that regexes pick up at the end of a URL.
func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?")
}

var (
	newsHosts = []string{
		"bbc", "cnn", "reuters", "apnews", "nytimes", "washingtonpost", "theguardian",
		"bloomberg", "elpais", "elmundo", "abc.es", "lanacion", "clarin", "eltiempo",
		"aljazeera", "france24", "dw.com",
	}
	academicHosts = []string{
		"scholar", "pubmed", "arxiv", "doi.org", "jstor", "researchgate", "sciencedirect",
		"springer", "nature.com", "ieee", "acm.org", "semanticscholar", "scielo", "wiley",
	}
)

// Classify returns the citation kind for a URL. Checks run official, news,
// then academic, so a government-hosted journal counts as official.
func Classify(rawURL string) Kind {
	if rawURL == "" {
		return KindReference
	}
	host := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	labels := strings.Split(host, ".")

	for _, l := range labels {
		switch l {
		case "gov", "gob", "edu", "mil":
			return KindOfficial
		}
	}
	if strings.HasSuffix(host, ".int") {
		return KindOfficial
	}
	for _, l := range labels {
		if strings.Contains(l, "news") || strings.Contains(l, "noticias") {
			return KindNews
		}
	}
	for _, h := range newsHosts {
		if strings.Contains(host, h) {
			return KindNews
		}
	}
	for _, h := range academicHosts {
		if strings.Contains(host, h) {
			return KindAcademic
		}
	}
	return KindLink
}

// DomainName returns the URL host without a leading "www.". Unparseable input
// is shortened to 50 characters.
func DomainName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		if utf8.RuneCountInString(rawURL) <= 50 {
			return rawURL
		}
		return string([]rune(rawURL)[:50]) + "..."
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
