package parser

import (
	"strings"

	"github.com/elerspay/DBMS/common"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// isKeyword matches identifiers case-insensitively.
func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (t token) isSymbol(sym string) bool {
	return t.kind == tokSymbol && t.text == sym
}

type lexer struct {
	src string
	pos int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// next scans one token. Two-character comparison symbols are folded here
// so the parser sees a single token.
func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			lx.pos++
			continue
		}
		if c == '-' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '-' {
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
			continue
		}
		break
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]

	if isIdentStart(c) {
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}, nil
	}

	if isDigit(c) {
		kind := tokInt
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
		if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]) {
			kind = tokFloat
			lx.pos++
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		}
		return token{kind: kind, text: lx.src[start:lx.pos], pos: start}, nil
	}

	if c == '\'' || c == '"' {
		quote := c
		lx.pos++
		var sb strings.Builder
		for lx.pos < len(lx.src) {
			ch := lx.src[lx.pos]
			if ch == quote {
				if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == quote {
					sb.WriteByte(quote)
					lx.pos += 2
					continue
				}
				lx.pos++
				return token{kind: tokString, text: sb.String(), pos: start}, nil
			}
			sb.WriteByte(ch)
			lx.pos++
		}
		return token{}, common.Errorf(common.Evaluation, "unterminated string literal at offset %d", start)
	}

	two := ""
	if lx.pos+1 < len(lx.src) {
		two = lx.src[lx.pos : lx.pos+2]
	}
	switch two {
	case "<=", ">=", "<>", "!=":
		lx.pos += 2
		return token{kind: tokSymbol, text: two, pos: start}, nil
	}

	switch c {
	case ',', '(', ')', '.', ';', '=', '<', '>', '+', '-', '*', '/', '%':
		lx.pos++
		return token{kind: tokSymbol, text: string(c), pos: start}, nil
	}
	return token{}, common.Errorf(common.Evaluation, "unexpected character %q at offset %d", string(c), start)
}

// tokenize scans the whole input up front; statements are short.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var toks []token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}
