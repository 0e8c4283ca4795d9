// Package compiler turns BVM source text into the flat token vector the
// core evaluator consumes. This is the "surface-syntax compiler" spec.md
// and SPEC_FULL.md explicitly place outside the core's invariants: lexing,
// string/type/label literal expansion. Grounded on
// original_source/program.cpp's tokenize function.
package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"

	"bvm/lang/token"
)

// word is one lexical unit produced by the splitter: its canonical string
// (used to build the Token) and the display string preserved as OrigStr.
type word struct {
	str     string
	display string
	line    int
}

// label names a token-vector position created by a ":name" marker
// immediately following the word it tags.
type label struct {
	name  string
	index int
}

// Compile lexes src and returns the flat token vector: word-splitting with
// "#" line comments and "..." string literals (backslash-escaped), string
// literals expanded to a list-bounded int32 char sequence, type-name
// literals resolved to their token.Type index, and label definitions
// resolved to ptr tokens carrying the precomputed relative offset.
func Compile(src string) ([]token.Token, error) {
	words, err := splitWords(src)
	if err != nil {
		return nil, errors.Wrap(err, "compiler: split")
	}
	words = expandStringLiterals(words)
	words = expandTypeLiterals(words)
	words, labels, err := extractLabels(words)
	if err != nil {
		return nil, errors.Wrap(err, "compiler: labels")
	}
	return buildTokens(words, labels)
}

type splitState int

const (
	stateSpace splitState = iota
	stateWord
	stateString
	stateEscape
	stateComment
)

func isNewline(c byte) bool { return c == '\n' || c == '\r' }

func splitWords(src string) ([]word, error) {
	var words []word
	if len(src) == 0 {
		return words, nil
	}
	state := stateSpace
	var current strings.Builder
	line := 1

	flushWord := func() {
		words = append(words, word{str: current.String(), display: current.String(), line: line})
		current.Reset()
	}

	runes := []rune(src)
	n := len(runes)
	for i := 0; i <= n; i++ {
		var c rune = -1
		if i < n {
			c = runes[i]
		}
		switch state {
		case stateWord:
			switch {
			case c == -1:
				flushWord()
			case unicode.IsSpace(c):
				flushWord()
				state = stateSpace
			case c == '#':
				flushWord()
				state = stateComment
			default:
				current.WriteRune(c)
			}
		case stateSpace:
			switch {
			case c == -1:
				// done
			case unicode.IsSpace(c):
				// skip
			case c == '"':
				current.Reset()
				state = stateString
			case c == '#':
				state = stateComment
			default:
				current.Reset()
				current.WriteRune(c)
				state = stateWord
			}
		case stateString:
			switch c {
			case '"':
				words = append(words, word{str: "\"" + current.String() + "\"", display: "\"" + current.String() + "\"", line: line})
				current.Reset()
				state = stateSpace
			case '\\':
				state = stateEscape
			case -1:
				return nil, fmt.Errorf("line %d: unterminated string literal", line)
			default:
				current.WriteRune(c)
			}
		case stateEscape:
			switch c {
			case 'n':
				current.WriteByte('\n')
			case 't':
				current.WriteByte('\t')
			case '"', '\\':
				current.WriteRune(c)
			default:
				current.WriteByte('\\')
				current.WriteRune(c)
			}
			state = stateString
		case stateComment:
			if c == -1 {
				// done
			} else if isNewline(byte(c)) {
				state = stateSpace
			}
		}
		if c != -1 && isNewline(byte(c)) {
			line++
		}
		if c == -1 {
			break
		}
	}
	return words, nil
}

// expandStringLiterals rewrites each `"..."` word into `list <char> ...
// end`, matching the char-by-char expansion in program.cpp.
func expandStringLiterals(words []word) []word {
	var out []word
	for _, w := range words {
		if len(w.str) > 1 && strings.HasPrefix(w.str, "\"") && strings.HasSuffix(w.str, "\"") {
			content := w.str[1 : len(w.str)-1]
			out = append(out, word{str: "list", display: fmt.Sprintf("list #%q", content), line: w.line})
			for _, b := range []byte(content) {
				out = append(out, word{
					str:     strconv.Itoa(int(b)),
					display: fmt.Sprintf("%d #'%c'", b, b),
					line:    w.line,
				})
			}
			out = append(out, word{str: "end", display: "end", line: w.line})
			continue
		}
		out = append(out, w)
	}
	return out
}

// expandTypeLiterals rewrites type-name words (e.g. "int32") into the
// decimal string of their token.Type index, for use as the cast
// instruction's type operand.
func expandTypeLiterals(words []word) []word {
	out := make([]word, len(words))
	for i, w := range words {
		if tp, ok := token.ParseType(w.str); ok {
			w.str = strconv.Itoa(int(tp))
		}
		out[i] = w
	}
	return out
}

// extractLabels pulls ":name" marker words out of the stream, recording the
// index of the word immediately preceding each one as that label's target.
func extractLabels(words []word) ([]word, []label, error) {
	var labels []label
	out := make([]word, 0, len(words))
	for _, w := range words {
		if strings.HasPrefix(w.str, ":") {
			if len(out) == 0 {
				return nil, nil, fmt.Errorf("line %d: label points at -1: %s", w.line, w.str)
			}
			labels = append(labels, label{name: w.str[1:], index: len(out) - 1})
			continue
		}
		out = append(out, w)
	}
	return out, labels, nil
}

func buildTokens(words []word, labels []label) ([]token.Token, error) {
	byName := swiss.NewMap[string, int](uint32(len(labels)))
	for _, l := range labels {
		byName.Put(l.name, l.index)
	}

	tokens := make([]token.Token, len(words))
	for i, w := range words {
		if targetIdx, ok := byName.Get(w.str); ok {
			relative := int64(targetIdx - i)
			t := token.New[int64](relative)
			t.Type = token.Ptr
			t.Data = relative
			t.OrigStr = w.display
			tokens[i] = t
			continue
		}
		t, err := parseWord(w.str)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", w.line, err)
		}
		t.OrigStr = w.display
		tokens[i] = t
	}
	return tokens, nil
}

// parseWord builds a single Token from a lexical word: a numeric literal
// with its type suffix, or an instruction name.
func parseWord(s string) (token.Token, error) {
	if isNumberWord(s) {
		return parseNumberWord(s)
	}
	op, ok := token.LookupOpcode(s)
	if !ok {
		return token.Token{}, fmt.Errorf("unknown token: %s", s)
	}
	return token.NewInstr(op.Index), nil
}

func isNumberWord(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.'
}

func parseNumberWord(s string) (token.Token, error) {
	if s == "" {
		return token.Token{}, fmt.Errorf("empty numeric literal")
	}
	last := s[len(s)-1]
	if last >= '0' && last <= '9' {
		if strings.Count(s, ".") == 1 {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return token.Token{}, fmt.Errorf("bad double literal %q: %w", s, err)
			}
			return token.New[float64](v), nil
		}
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return token.Token{}, fmt.Errorf("bad int32 literal %q: %w", s, err)
		}
		return token.New[int32](int32(v)), nil
	}
	body := s[:len(s)-1]
	switch last {
	case 'L':
		v, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return token.Token{}, fmt.Errorf("bad int64 literal %q: %w", s, err)
		}
		return token.New[int64](v), nil
	case 'u':
		v, err := strconv.ParseUint(body, 10, 32)
		if err != nil {
			return token.Token{}, fmt.Errorf("bad uint32 literal %q: %w", s, err)
		}
		return token.New[uint32](uint32(v)), nil
	case 'U':
		v, err := strconv.ParseUint(body, 10, 64)
		if err != nil {
			return token.Token{}, fmt.Errorf("bad uint64 literal %q: %w", s, err)
		}
		return token.New[uint64](v), nil
	case 'f':
		v, err := strconv.ParseFloat(body, 32)
		if err != nil {
			return token.Token{}, fmt.Errorf("bad float literal %q: %w", s, err)
		}
		return token.New[float32](float32(v)), nil
	case 'p':
		v, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return token.Token{}, fmt.Errorf("bad ptr literal %q: %w", s, err)
		}
		t := token.New[int64](v)
		t.Type = token.Ptr
		return t, nil
	default:
		return token.Token{}, fmt.Errorf("unknown number suffix %q in %q", string(last), s)
	}
}
