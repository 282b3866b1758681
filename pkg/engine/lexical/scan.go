package lexical

import (
	"path"
	"regexp"
	"strings"

	"github.com/walteh/astrols/pkg/position"
)

type declKind int

const (
	declConst declKind = iota + 1
	declLet
	declVar
	declFunction
	declClass
	declInterface
	declType
	declImport
)

func (k declKind) String() string {
	switch k {
	case declConst:
		return "const"
	case declLet:
		return "let"
	case declVar:
		return "var"
	case declFunction:
		return "function"
	case declClass:
		return "class"
	case declInterface:
		return "interface"
	case declType:
		return "type"
	case declImport:
		return "import"
	default:
		return "unknown"
	}
}

// blockScoped declarations may not share a name with anything else in their scope.
func (k declKind) blockScoped() bool {
	switch k {
	case declConst, declLet, declClass, declImport:
		return true
	}
	return false
}

type decl struct {
	name   string
	kind   declKind
	span   position.Span
	stmt   int
	scope  int
	typ    string
	init   string
	params []param
	sig    string
	module string
}

type param struct {
	name string
	typ  string
}

const ident = `[A-Za-z_$][\w$]*`

var (
	varRe         = regexp.MustCompile(`\b(const|let|var)\s+(` + ident + `)`)
	destructureRe = regexp.MustCompile(`\b(const|let|var)\s*\{([^}]*)\}\s*=`)
	functionRe    = regexp.MustCompile(`\b(?:async\s+)?function\s*\*?\s*(` + ident + `)\s*\(`)
	classRe       = regexp.MustCompile(`\bclass\s+(` + ident + `)`)
	typeRe        = regexp.MustCompile(`\b(interface|type)\s+(` + ident + `)`)
	defaultImpRe  = regexp.MustCompile(`\bimport\s+(?:type\s+)?(` + ident + `)\s*(?:,\s*\{[^}]*\}\s*)?from\s*['"]`)
	namedImpRe    = regexp.MustCompile(`\bimport\s+(?:type\s+)?(?:` + ident + `\s*,\s*)?\{([^}]*)\}\s*from\s*['"]`)
	identRe       = regexp.MustCompile(`^` + ident + `$`)
	numberRe      = regexp.MustCompile(`^-?(?:0[xXoObB][0-9a-fA-F_]+|\d[\d_]*(?:\.\d+)?(?:[eE][+-]?\d+)?)$`)
)

// scanned is a document with string, template and comment contents masked out, so the regular
// expressions above only see code.
type scanned struct {
	raw     string
	masked  string
	literal []bool
	scopes  []int
	decls   []decl
}

func scan(text string) *scanned {
	me := &scanned{raw: text}
	me.mask()
	me.computeScopes()
	me.collect()
	return me
}

func (me *scanned) mask() {
	b := []byte(me.raw)
	lit := make([]bool, len(b)+1)

	blankRange := func(from, to int) {
		for i := from; i < to && i < len(b); i++ {
			lit[i] = true
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}

	for i := 0; i < len(b); {
		switch {
		case strings.HasPrefix(me.raw[i:], "//"):
			end := strings.IndexByte(me.raw[i:], '\n')
			if end < 0 {
				end = len(b) - i
			}
			blankRange(i, i+end)
			i += end
		case strings.HasPrefix(me.raw[i:], "/*"):
			end := strings.Index(me.raw[i+2:], "*/")
			if end < 0 {
				end = len(b) - i - 2
			} else {
				end += 2
			}
			blankRange(i, i+2+end)
			i += 2 + end
		case b[i] == '"' || b[i] == '\'' || b[i] == '`':
			quote := b[i]
			j := i + 1
			for j < len(b) && me.raw[j] != quote {
				if me.raw[j] == '\\' {
					j++
				} else if me.raw[j] == '\n' && quote != '`' {
					break
				}
				j++
			}
			blankRange(i+1, j)
			i = j + 1
		default:
			i++
		}
	}

	me.masked = string(b)
	me.literal = lit
}

// computeScopes records, for every offset, the offset of the innermost open brace (-1 at module scope).
func (me *scanned) computeScopes() {
	me.scopes = make([]int, len(me.masked)+1)
	stack := []int{-1}
	for i := 0; i < len(me.masked); i++ {
		me.scopes[i] = stack[len(stack)-1]
		switch me.masked[i] {
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	me.scopes[len(me.masked)] = stack[len(stack)-1]
}

func (me *scanned) scopeAt(offset int) int {
	if offset < 0 || offset >= len(me.scopes) {
		return -1
	}
	return me.scopes[offset]
}

func (me *scanned) add(d decl) {
	d.scope = me.scopeAt(d.stmt)
	me.decls = append(me.decls, d)
}

func (me *scanned) collect() {
	m := me.masked

	for _, g := range varRe.FindAllStringSubmatchIndex(m, -1) {
		d := decl{
			name: m[g[4]:g[5]],
			kind: kindOf(m[g[2]:g[3]]),
			span: position.Span{Start: g[4], End: g[5]},
			stmt: g[0],
		}
		d.typ, d.init = me.annotationAndInit(g[5])
		me.add(d)
	}

	for _, g := range destructureRe.FindAllStringSubmatchIndex(m, -1) {
		kind := kindOf(m[g[2]:g[3]])
		for _, name := range me.listNames(g[4], g[5]) {
			me.add(decl{name: m[name.Start:name.End], kind: kind, span: name, stmt: g[0]})
		}
	}

	for _, g := range functionRe.FindAllStringSubmatchIndex(m, -1) {
		open := g[1] - 1
		end := matching(m, open)
		d := decl{
			name: m[g[2]:g[3]],
			kind: declFunction,
			span: position.Span{Start: g[2], End: g[3]},
			stmt: g[0],
			sig:  strings.Join(strings.Fields(me.raw[g[0]:min(end+1, len(me.raw))]), " "),
		}
		for _, p := range splitTopLevel(m, open+1, end) {
			d.params = append(d.params, me.parseParam(p))
		}
		me.add(d)
	}

	for _, g := range classRe.FindAllStringSubmatchIndex(m, -1) {
		me.add(decl{name: m[g[2]:g[3]], kind: declClass, span: position.Span{Start: g[2], End: g[3]}, stmt: g[0]})
	}

	for _, g := range typeRe.FindAllStringSubmatchIndex(m, -1) {
		if strings.HasSuffix(strings.TrimSpace(m[:g[0]]), "import") {
			continue
		}
		kind := declInterface
		if m[g[2]:g[3]] == "type" {
			kind = declType
		}
		d := decl{name: m[g[4]:g[5]], kind: kind, span: position.Span{Start: g[4], End: g[5]}, stmt: g[0]}
		if kind == declType {
			d.typ = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(me.restOfStatement(g[5])), "="))
		}
		me.add(d)
	}

	for _, g := range defaultImpRe.FindAllStringSubmatchIndex(m, -1) {
		me.add(decl{
			name:   m[g[2]:g[3]],
			kind:   declImport,
			span:   position.Span{Start: g[2], End: g[3]},
			stmt:   g[0],
			module: me.stringAt(g[1] - 1),
		})
	}

	for _, g := range namedImpRe.FindAllStringSubmatchIndex(m, -1) {
		module := me.stringAt(g[1] - 1)
		for _, name := range me.listNames(g[2], g[3]) {
			me.add(decl{name: m[name.Start:name.End], kind: declImport, span: name, stmt: g[0], module: module})
		}
	}
}

func kindOf(keyword string) declKind {
	switch keyword {
	case "let":
		return declLet
	case "var":
		return declVar
	default:
		return declConst
	}
}

// listNames reads the bound names of "a, b as c, d: e, ...rest" between from and to.
func (me *scanned) listNames(from, to int) []position.Span {
	var out []position.Span
	for _, part := range splitTopLevel(me.masked, from, to) {
		text := part.Text(me.masked)
		start := part.Start

		if i := strings.Index(text, " as "); i >= 0 {
			start += i + 4
			text = text[i+4:]
		} else if i := strings.IndexByte(text, ':'); i >= 0 {
			start += i + 1
			text = text[i+1:]
		}
		if i := strings.IndexByte(text, '='); i >= 0 {
			text = text[:i]
		}

		trimmed := strings.TrimLeft(text, " \t\r\n.")
		start += len(text) - len(trimmed)
		trimmed = strings.TrimSpace(trimmed)
		if identRe.MatchString(trimmed) {
			out = append(out, position.NewSpan(start, len(trimmed)))
		}
	}
	return out
}

// annotationAndInit reads ": Type = init" following a declared name.
func (me *scanned) annotationAndInit(after int) (typ, init string) {
	rest := me.restOfStatement(after)
	masked := me.masked[after : after+len(rest)]

	eq := -1
	for i := 0; i < len(masked); i++ {
		if masked[i] != '=' {
			continue
		}
		if i+1 < len(masked) && (masked[i+1] == '=' || masked[i+1] == '>') {
			i++
			continue
		}
		eq = i
		break
	}

	head := rest
	if eq >= 0 {
		head = rest[:eq]
		init = strings.TrimSpace(rest[eq+1:])
	}
	head = strings.TrimSpace(head)
	if strings.HasPrefix(head, ":") {
		typ = strings.TrimSpace(head[1:])
	}
	return typ, init
}

// restOfStatement returns raw text from offset up to the end of the statement: a semicolon, or a line
// break, at the starting nesting depth.
func (me *scanned) restOfStatement(from int) string {
	depth := 0
	for i := from; i < len(me.masked); i++ {
		switch me.masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return me.raw[from:i]
			}
			depth--
		case ';':
			if depth == 0 {
				return me.raw[from:i]
			}
		case '\n':
			if depth == 0 {
				return me.raw[from:i]
			}
		}
	}
	return me.raw[from:]
}

// stringAt returns the contents of the string literal whose opening quote is at offset.
func (me *scanned) stringAt(offset int) string {
	if offset < 0 || offset >= len(me.raw) {
		return ""
	}
	quote := me.raw[offset]
	end := strings.IndexByte(me.raw[offset+1:], quote)
	if end < 0 {
		return ""
	}
	return me.raw[offset+1 : offset+1+end]
}

func (me *scanned) parseParam(s position.Span) param {
	text := strings.TrimSpace(s.Text(me.raw))
	text = strings.TrimPrefix(text, "...")

	p := param{name: text}
	if i := strings.IndexAny(text, ":=?"); i >= 0 {
		p.name = strings.TrimSpace(text[:i])
		rest := text[i:]
		rest = strings.TrimPrefix(rest, "?")
		if strings.HasPrefix(rest, ":") {
			p.typ = strings.TrimSpace(strings.SplitN(rest[1:], "=", 2)[0])
		}
	}
	return p
}

// matching returns the offset of the bracket closing the one at open, or the end of text.
func matching(masked string, open int) int {
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(masked)
}

// splitTopLevel splits masked[from:to] at commas that are not nested in brackets.
func splitTopLevel(masked string, from, to int) []position.Span {
	var out []position.Span
	depth := 0
	start := from
	for i := from; i < to && i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, position.Span{Start: start, End: i})
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(masked[start:min(to, len(masked))]) != "" {
		out = append(out, position.Span{Start: start, End: min(to, len(masked))})
	}
	return out
}

// wordAt returns the identifier touching offset.
func (me *scanned) wordAt(offset int) (position.Span, bool) {
	if offset < 0 || offset > len(me.masked) {
		return position.Span{}, false
	}
	start, end := offset, offset
	for start > 0 && isIdentByte(me.masked[start-1]) {
		start--
	}
	for end < len(me.masked) && isIdentByte(me.masked[end]) {
		end++
	}
	if start == end || !identRe.MatchString(me.masked[start:end]) {
		return position.Span{}, false
	}
	return position.Span{Start: start, End: end}, true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// lookup finds the declaration of name visible from offset: the nearest enclosing scope wins.
func (me *scanned) lookup(name string, offset int) (decl, bool) {
	var best decl
	found := false
	for _, d := range me.decls {
		if d.name != name {
			continue
		}
		if d.scope >= 0 && !me.encloses(d.scope, offset) {
			continue
		}
		if !found || d.scope > best.scope {
			best = d
			found = true
		}
	}
	return best, found
}

func (me *scanned) encloses(brace, offset int) bool {
	return offset > brace && offset <= matching(me.masked, brace)
}

func (me *scanned) inLiteral(offset int) bool {
	return offset > 0 && offset-1 < len(me.literal) && me.literal[offset-1]
}

// docComment returns the text of a /** */ block directly above the statement at stmt.
func (me *scanned) docComment(stmt int) string {
	before := strings.TrimRight(me.raw[:stmt], " \t\r\n")
	if !strings.HasSuffix(before, "*/") {
		return ""
	}
	start := strings.LastIndex(before, "/**")
	if start < 0 {
		return ""
	}
	body := before[start+3 : len(before)-2]

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// literalType infers the type of a literal initializer. widen turns literal types into their base.
func literalType(init string, widen bool) string {
	switch {
	case init == "":
		return ""
	case init == "true" || init == "false":
		if widen {
			return "boolean"
		}
		return init
	case init == "null":
		return "null"
	case numberRe.MatchString(init):
		if widen {
			return "number"
		}
		return init
	case init[0] == '`' && init[len(init)-1] == '`':
		return "string"
	case (init[0] == '"' || init[0] == '\'') && len(init) > 1 && init[len(init)-1] == init[0]:
		if widen {
			return "string"
		}
		return `"` + init[1:len(init)-1] + `"`
	case strings.HasPrefix(init, "new "):
		name := strings.TrimPrefix(init, "new ")
		if i := strings.IndexAny(name, "(<"); i >= 0 {
			name = name[:i]
		}
		if identRe.MatchString(name) {
			return name
		}
	}
	return ""
}

// resolveModule joins a relative import specifier onto the directory of the importing file.
func resolveModule(importer, spec string) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return "", false
	}
	return path.Join(path.Dir(importer), spec), true
}
