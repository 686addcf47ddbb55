package config

import (
	"strings"
	"unicode"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// ParseType parses a type expression such as `@Named Map<String, out Foo>?`.
//
// Grammar:
//
//	type  = { "@" name [ "<" args ">" ] } ( "!" name | "(" type ")" | name [ "<" args ">" ] ) [ "?" ]
//	args  = arg { "," arg }
//	arg   = "*" | [ "out" | "in" ] type
//
// Names found in params are type parameters; every other name is a class.
// "!Name" marks a type the front end could not resolve.
func ParseType(tt *domain.TypeTable, expr string, params map[string]domain.Classifier) (*domain.Type, error) {
	p := &typeParser{tt: tt, params: params, src: expr}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.fail("unexpected trailing input")
	}
	return t, nil
}

type typeParser struct {
	tt     *domain.TypeTable
	params map[string]domain.Classifier
	src    string
	pos    int
}

func (p *typeParser) fail(reason string) error {
	err := zerr.Wrap(zerr.New(reason), domain.ErrInvalidTypeExpression.Error())
	err = zerr.With(err, "expression", p.src)
	return zerr.With(err, "offset", p.pos)
}

func (p *typeParser) eof() bool { return p.pos >= len(p.src) }

func (p *typeParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) accept(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *typeParser) name() (string, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", p.fail("expected a type name")
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) parseType() (*domain.Type, error) {
	var tags []*domain.Type
	for p.accept('@') {
		tag, err := p.parseNamed(false)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	var t *domain.Type
	switch {
	case p.accept('!'):
		raw, err := p.name()
		if err != nil {
			return nil, err
		}
		p.accept('?')
		return p.tt.ErrorType(raw), nil
	case p.accept('('):
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !p.accept(')') {
			return nil, p.fail("expected )")
		}
		t = p.tt.Tagged(inner, tags...)
		if p.accept('?') {
			t = p.tt.Nullable(t)
		}
		return t, nil
	default:
		var err error
		t, err = p.parseNamed(true)
		if err != nil {
			return nil, err
		}
	}

	return p.tt.Tagged(t, tags...), nil
}

// parseNamed parses name[<args>] and, when nullable is allowed, a trailing "?".
func (p *typeParser) parseNamed(allowNullable bool) (*domain.Type, error) {
	name, err := p.name()
	if err != nil {
		return nil, err
	}

	var args []domain.Arg
	if p.accept('<') {
		for {
			arg, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.accept(',') {
				continue
			}
			if p.accept('>') {
				break
			}
			return nil, p.fail("expected , or >")
		}
	}

	c := domain.ClassOf(name)
	if param, ok := p.params[name]; ok {
		if len(args) > 0 {
			return nil, p.fail("type parameter " + name + " cannot take arguments")
		}
		c = param
	}

	nullable := false
	if allowNullable {
		nullable = p.accept('?')
	}
	return p.tt.Of(c, args, nullable, nil), nil
}

func (p *typeParser) parseArg() (domain.Arg, error) {
	if p.accept('*') {
		return domain.Arg{Variance: domain.Star}, nil
	}

	variance := domain.Invariant
	save := p.pos
	if word, err := p.name(); err == nil && (word == "out" || word == "in") {
		// A variance keyword is followed by the projected type, not by , or >.
		if next := p.peek(); next != ',' && next != '>' && next != 0 {
			if word == "out" {
				variance = domain.Out
			} else {
				variance = domain.In
			}
			save = p.pos
		}
	}
	p.pos = save

	t, err := p.parseType()
	if err != nil {
		return domain.Arg{}, err
	}
	return domain.Arg{Type: t, Variance: variance}, nil
}

// parseAnnotation parses `Name` or `Name(arg, ...)`. IntoMap takes an optional key type as its second argument.
func parseAnnotation(tt *domain.TypeTable, raw string, params map[string]domain.Classifier) (domain.Annotation, error) {
	raw = strings.TrimSpace(raw)
	name, rest, hasArgs := strings.Cut(raw, "(")
	ann := domain.Annotation{Name: strings.TrimPrefix(strings.TrimSpace(name), "@")}
	if ann.Name == "" {
		return ann, zerr.With(zerr.Wrap(zerr.New("annotation without a name"), domain.ErrInvalidManifest.Error()), "annotation", raw)
	}
	if !hasArgs {
		return ann, nil
	}

	body, ok := strings.CutSuffix(strings.TrimSpace(rest), ")")
	if !ok {
		return ann, zerr.With(zerr.Wrap(zerr.New("annotation is missing )"), domain.ErrInvalidManifest.Error()), "annotation", raw)
	}
	for _, arg := range splitTopLevel(body) {
		ann.Args = append(ann.Args, unquote(arg))
	}

	if ann.Name == domain.AnnotationIntoMap && len(ann.Args) > 1 {
		keyType, err := ParseType(tt, ann.Args[1], params)
		if err != nil {
			return ann, err
		}
		ann.Type = keyType
		ann.Args = ann.Args[:1]
	}
	return ann, nil
}

// splitTopLevel splits s at commas that are not nested inside <...> or (...).
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := range len(s) {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
