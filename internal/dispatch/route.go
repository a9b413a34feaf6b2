package dispatch

import (
	"fmt"
	"regexp"
	"strings"
)

func isPattern(route string) bool {
	return strings.ContainsAny(route, "*?[{")
}

// compileRoute turns an OSC address pattern into an anchored expression.
// '*' matches within one address segment as in OSC 1.0; a doubled '**' also
// crosses '/'.
func compileRoute(route string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(route); i++ {
		c := route[i]
		switch c {
		case '*':
			switch {
			case i+1 < len(route) && route[i+1] == '*':
				for i+1 < len(route) && route[i+1] == '*' {
					i++
				}
				b.WriteString(".*")
			default:
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(route[i+1:], ']')
			if end <= 0 {
				return nil, fmt.Errorf("%w: bad character class in %q", ErrBadRoute, route)
			}
			body := route[i+1 : i+1+end]
			b.WriteByte('[')
			if body[0] == '!' {
				b.WriteByte('^')
				body = body[1:]
			}
			if body == "" {
				return nil, fmt.Errorf("%w: empty character class in %q", ErrBadRoute, route)
			}
			for j := 0; j < len(body); j++ {
				switch body[j] {
				case '\\', '[', ']', '^':
					b.WriteByte('\\')
				}
				b.WriteByte(body[j])
			}
			b.WriteByte(']')
			i += end + 1
		case '{':
			end := strings.IndexByte(route[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated '{' in %q", ErrBadRoute, route)
			}
			alts := strings.Split(route[i+1:i+1+end], ",")
			for j, alt := range alts {
				alts[j] = regexp.QuoteMeta(alt)
			}
			b.WriteString("(?:" + strings.Join(alts, "|") + ")")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadRoute, route, err)
	}
	return re, nil
}
