package token

// Stream is a pull cursor over the tokens of one inbound message with a
// single token of lookahead. The boolean result of Peek and Advance is false
// at end of stream, which keeps end of stream distinct from a KindNil token.
type Stream struct {
	toks []Token
	pos  int
}

func NewStream(toks []Token) *Stream {
	return &Stream{toks: toks}
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() (Token, bool) {
	if s.pos >= len(s.toks) {
		return Token{}, false
	}
	return s.toks[s.pos], true
}

// Advance consumes and returns the next token.
func (s *Stream) Advance() (Token, bool) {
	tok, ok := s.Peek()
	if ok {
		s.pos++
	}
	return tok, ok
}

// Remaining reports how many tokens have not been consumed yet.
func (s *Stream) Remaining() int {
	return len(s.toks) - s.pos
}

// Offset is the index of the next token Advance would return.
func (s *Stream) Offset() int {
	return s.pos
}
