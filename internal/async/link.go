package async

import (
	"fmt"
	"strings"
)

// LinkRef is one entry of an RFC 8288 Link header.
type LinkRef struct {
	URL    string
	Rel    string
	Title  string
	Params map[string]string
}

// ParseLinkHeader parses a Link header value such as
//
//	</monitor/123>;rel=related;title=monitor, </next>; rel="next"
//
// Parameter names are case-insensitive; values may be quoted.
func ParseLinkHeader(header string) ([]LinkRef, error) {
	var links []LinkRef
	for _, part := range splitOutside(header, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, "<") {
			return nil, fmt.Errorf("link %q: expected <uri-reference>", part)
		}
		end := strings.IndexByte(part, '>')
		if end < 0 {
			return nil, fmt.Errorf("link %q: unterminated <uri-reference>", part)
		}
		ref := LinkRef{URL: strings.TrimSpace(part[1:end]), Params: make(map[string]string)}

		for _, param := range splitOutside(part[end+1:], ';') {
			param = strings.TrimSpace(param)
			if param == "" {
				continue
			}
			name, value, _ := strings.Cut(param, "=")
			name = strings.ToLower(strings.TrimSpace(name))
			value = strings.TrimSpace(value)
			if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
				value = value[1 : len(value)-1]
			}
			ref.Params[name] = value
		}
		ref.Rel = ref.Params["rel"]
		ref.Title = ref.Params["title"]
		links = append(links, ref)
	}
	return links, nil
}

// FindLink returns the first link whose rel list contains rel.
func FindLink(links []LinkRef, rel string) (LinkRef, bool) {
	for _, l := range links {
		for _, r := range strings.Fields(l.Rel) {
			if strings.EqualFold(r, rel) {
				return l, true
			}
		}
	}
	return LinkRef{}, false
}

// splitOutside splits s on sep, ignoring separators inside <...> or "...".
func splitOutside(s string, sep byte) []string {
	var parts []string
	var inAngle, inQuote bool
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' && !inAngle:
			inQuote = !inQuote
		case c == '<' && !inQuote:
			inAngle = true
		case c == '>' && !inQuote:
			inAngle = false
		case c == sep && !inAngle && !inQuote:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
