package descriptor

import (
	"unicode/utf8"

	"github.com/wippyai/sffi/errors"
)

const maxFragment = 24

// Parse parses a single type: an atom or an aggregate.
func Parse(text string) (Type, error) {
	p := parser{src: text}
	p.skipSpace()
	if p.eof() {
		return Type{}, p.fail(p.pos, "empty descriptor")
	}
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}
	if err := p.expectEnd(); err != nil {
		return Type{}, err
	}
	return t, nil
}

// ParseList parses a comma separated list of types without enclosing brackets.
// An empty or blank text yields an empty list. A single trailing comma is
// allowed.
func ParseList(text string) ([]Type, error) {
	p := parser{src: text}
	p.skipSpace()
	if p.eof() {
		return []Type{}, nil
	}
	var types []Type
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		p.skipSpace()
		if p.eof() {
			return types, nil
		}
		if p.src[p.pos] != ',' {
			return nil, p.fail(p.pos, "expected ','")
		}
		p.pos++
		p.skipSpace()
		if p.eof() {
			return types, nil
		}
	}
}

// ParseFunc parses a function descriptor of the form (args)ret.
func ParseFunc(text string) (args []Type, ret Type, err error) {
	p := parser{src: text}
	p.skipSpace()
	if p.eof() || p.src[p.pos] != '(' {
		return nil, Type{}, p.fail(p.pos, "invalid descriptor start")
	}
	p.pos++
	args, err = p.parseList(')')
	if err != nil {
		return nil, Type{}, err
	}
	p.skipSpace()
	if p.eof() {
		return nil, Type{}, p.fail(p.pos, "missing return type")
	}
	ret, err = p.parseType()
	if err != nil {
		return nil, Type{}, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, Type{}, err
	}
	return args, ret, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expectEnd() error {
	p.skipSpace()
	if !p.eof() {
		return p.fail(p.pos, "unexpected trailing text")
	}
	return nil
}

// parseList consumes elements up to and including the close byte.
func (p *parser) parseList(close byte) ([]Type, error) {
	start := p.pos - 1
	types := []Type{}
	p.skipSpace()
	if !p.eof() && p.src[p.pos] == close {
		p.pos++
		return types, nil
	}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.unterminated(start, close)
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		p.skipSpace()
		if p.eof() {
			return nil, p.unterminated(start, close)
		}
		switch c := p.src[p.pos]; {
		case c == ',':
			p.pos++
			p.skipSpace()
			if !p.eof() && p.src[p.pos] == close {
				p.pos++
				return types, nil
			}
		case c == close:
			p.pos++
			return types, nil
		default:
			return nil, p.fail(p.pos, "expected ',' or '"+string(close)+"'")
		}
	}
}

func (p *parser) unterminated(start int, close byte) error {
	if close == ']' {
		return p.fail(start, "struct without end")
	}
	return p.fail(start, "invalid descriptor end")
}

func (p *parser) parseType() (Type, error) {
	if p.eof() {
		return Type{}, p.fail(p.pos, "missing type")
	}
	if p.src[p.pos] == '[' {
		p.pos++
		fields, err := p.parseList(']')
		if err != nil {
			return Type{}, err
		}
		return Aggregate(fields...), nil
	}

	start := p.pos
	tok := p.token()
	k, ok := atoms[tok]
	if !ok {
		if tok == "" {
			return Type{}, p.fail(start, "missing type")
		}
		return Type{}, errors.Syntax(tok, start, "unknown type: "+tok)
	}
	return Of(k), nil
}

// token scans one atom. Sigil atoms are matched whole so that "*[]" is not
// split into a pointer followed by an empty aggregate.
func (p *parser) token() string {
	rest := p.src[p.pos:]
	for _, sigil := range [...]string{"&str", "&[]", "*str", "*[]"} {
		if len(rest) >= len(sigil) && rest[:len(sigil)] == sigil && !isIdent(rest, len(sigil)) {
			p.pos += len(sigil)
			return sigil
		}
	}
	switch rest[0] {
	case '*', '?':
		p.pos++
		return rest[:1]
	case '&':
		p.pos++
		end := p.pos
		for end < len(p.src) && isIdentByte(p.src[end]) {
			end++
		}
		tok := p.src[p.pos-1 : end]
		p.pos = end
		return tok
	}
	end := p.pos
	for end < len(p.src) && isIdentByte(p.src[end]) {
		end++
	}
	tok := p.src[p.pos:end]
	p.pos = end
	return tok
}

func isIdent(s string, i int) bool {
	return i < len(s) && isIdentByte(s[i])
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) fail(at int, detail string) error {
	frag := ""
	if at < len(p.src) {
		frag = p.src[at:]
		if len(frag) > maxFragment {
			cut := maxFragment
			for cut > 0 && !utf8.RuneStart(frag[cut]) {
				cut--
			}
			frag = frag[:cut]
		}
	}
	return errors.Syntax(frag, at, detail)
}
