// Package yaml2ts turns a YAML frontmatter block into a typescript module whose default export is
// checked against a content collection's schema, with a mapping from every key and scalar back into
// the block.
package yaml2ts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const Header = "import type { InferEntrySchema } from \"astro:content\";\n\n"

// MaxAliasExpansions bounds how many times aliases are followed in one block, nested expansions
// included.
const MaxAliasExpansions = 1000

// Flags granted to keys and values. Generated punctuation is never formatted back into the source.
const Flags = mapping.Verification | mapping.Completion | mapping.Semantic | mapping.Navigation

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	errLineRe = regexp.MustCompile(`line (\d+):\s*(.*)$`)
)

// Error is a problem found while reading the block, positioned in block coordinates.
type Error struct {
	Message string
	Span    position.Span
}

func (e Error) Error() string {
	return e.Message
}

type Result struct {
	Text     string
	Mappings *mapping.Table
	Errors   []Error
}

type transpiler struct {
	src   string
	lines *position.Index
	buf   strings.Builder
	maps  []mapping.CodeMapping
	errs  []Error

	// collections being emitted, to catch an alias inside its own anchor
	open     map[*yaml.Node]bool
	expanded int
}

// Transpile converts block into a typescript module for the named collection. Syntax problems do not
// fail the call; they produce an empty object and an entry in Errors.
func Transpile(block, collection string) (*Result, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}

	me := &transpiler{src: block, lines: position.NewIndex(block), open: map[*yaml.Node]bool{}}
	me.buf.WriteString(Header)
	me.buf.WriteString("export default ")

	var doc yaml.Node
	err := yaml.Unmarshal([]byte(block), &doc)

	switch {
	case err != nil:
		me.errs = append(me.errs, me.syntaxError(err))
		me.buf.WriteString("{}")
	case len(doc.Content) == 0:
		me.emitEmpty()
	default:
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			me.errs = append(me.errs, Error{
				Message: "frontmatter must be a mapping of keys to values",
				Span:    me.nodeSpan(root),
			})
			me.buf.WriteString("{}")
		} else {
			me.emitValue(root, 0)
		}
	}

	fmt.Fprintf(&me.buf, " satisfies InferEntrySchema<%s>;\n", strconv.Quote(collection))

	tbl, err := mapping.NewTable(me.maps...)
	if err != nil {
		return nil, errors.Errorf("building yaml mappings: %w", err)
	}

	return &Result{Text: me.buf.String(), Mappings: tbl, Errors: me.errs}, nil
}

func (me *transpiler) emitEmpty() {
	// anchor the whole object at the top of the block so schema errors land somewhere visible
	me.maps = append(me.maps, mapping.CodeMapping{
		GeneratedOffset: me.buf.Len(),
		GeneratedLength: 2,
		Data:            mapping.Verification,
	})
	me.buf.WriteString("{}")
}

func (me *transpiler) indent(depth int) {
	me.buf.WriteString(strings.Repeat("  ", depth))
}

func (me *transpiler) emitMapping(n *yaml.Node, depth int) {
	if len(n.Content) == 0 {
		me.buf.WriteString("{}")
		return
	}

	me.buf.WriteString("{\n")
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		me.indent(depth + 1)
		me.emitKey(key)
		me.buf.WriteString(": ")
		me.emitValue(value, depth+1)
		me.buf.WriteString(",\n")
	}
	me.indent(depth)
	me.buf.WriteString("}")
}

func (me *transpiler) emitSequence(n *yaml.Node, depth int) {
	if len(n.Content) == 0 {
		me.buf.WriteString("[]")
		return
	}

	me.buf.WriteString("[\n")
	for _, item := range n.Content {
		me.indent(depth + 1)
		me.emitValue(item, depth+1)
		me.buf.WriteString(",\n")
	}
	me.indent(depth)
	me.buf.WriteString("]")
}

func (me *transpiler) emitKey(key *yaml.Node) {
	src := me.scalarSpan(key)

	if identRe.MatchString(key.Value) {
		me.record(src, key.Value)
		return
	}

	me.buf.WriteByte('"')
	me.record(src, escape(key.Value))
	me.buf.WriteByte('"')
}

func (me *transpiler) emitValue(n *yaml.Node, depth int) {
	switch n.Kind {
	case yaml.MappingNode:
		me.open[n] = true
		me.emitMapping(n, depth)
		delete(me.open, n)
	case yaml.SequenceNode:
		me.open[n] = true
		me.emitSequence(n, depth)
		delete(me.open, n)
	case yaml.AliasNode:
		me.emitAlias(n, depth)
	case yaml.ScalarNode:
		me.record(me.scalarSpan(n), literal(n))
	default:
		me.buf.WriteString("undefined")
	}
}

func (me *transpiler) emitAlias(n *yaml.Node, depth int) {
	switch {
	case n.Alias == nil:
		me.buf.WriteString("undefined")
		return
	case me.open[n.Alias]:
		me.aliasError(n, fmt.Sprintf("alias *%s refers to itself", n.Value))
		return
	case me.expanded >= MaxAliasExpansions:
		me.aliasError(n, fmt.Sprintf("too many alias expansions (limit %d)", MaxAliasExpansions))
		return
	}

	me.expanded++
	me.emitValue(n.Alias, depth)
}

func (me *transpiler) aliasError(n *yaml.Node, msg string) {
	off := me.offsetOf(n.Line, n.Column)
	length := min(len("*"+n.Value), len(me.src)-off)
	me.errs = append(me.errs, Error{Message: msg, Span: position.NewSpan(off, length)})
	me.buf.WriteString("undefined")
}

// record writes text and maps it to src.
func (me *transpiler) record(src position.Span, text string) {
	me.maps = append(me.maps, mapping.CodeMapping{
		SourceOffset:    src.Start,
		GeneratedOffset: me.buf.Len(),
		SourceLength:    src.Length(),
		GeneratedLength: len(text),
		Data:            Flags,
	})
	me.buf.WriteString(text)
}

func literal(n *yaml.Node) string {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return `"` + escape(n.Value) + `"`
	}

	switch n.ShortTag() {
	case "!!null":
		return "null"
	case "!!bool":
		if strings.EqualFold(n.Value, "true") {
			return "true"
		}
		return "false"
	case "!!int":
		return n.Value
	case "!!float":
		switch strings.ToLower(n.Value) {
		case ".inf", "+.inf":
			return "Infinity"
		case "-.inf":
			return "-Infinity"
		case ".nan":
			return "NaN"
		}
		return n.Value
	case "!!timestamp":
		return `new Date("` + escape(n.Value) + `")`
	default:
		return `"` + escape(n.Value) + `"`
	}
}

func escape(s string) string {
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

// offsetOf converts a yaml.v3 line/column (1-based, counted in characters) into a byte offset.
func (me *transpiler) offsetOf(line, column int) int {
	start := me.lines.OffsetAt(position.Place{Line: line - 1})
	off := start
	for c := 1; c < column && off < len(me.src); c++ {
		if me.src[off] == '\n' {
			break
		}
		_, size := utf8.DecodeRuneInString(me.src[off:])
		off += size
	}
	return off
}

func (me *transpiler) nodeSpan(n *yaml.Node) position.Span {
	off := me.offsetOf(n.Line, n.Column)
	end := strings.IndexByte(me.src[off:], '\n')
	if end < 0 {
		end = len(me.src) - off
	}
	return position.NewSpan(off, end)
}

// scalarSpan is the source span of a scalar token including any quotes.
func (me *transpiler) scalarSpan(n *yaml.Node) position.Span {
	off := me.offsetOf(n.Line, n.Column)
	rest := me.src[off:]

	switch {
	case n.Style&yaml.DoubleQuotedStyle != 0:
		return position.NewSpan(off, quotedLen(rest, '"'))
	case n.Style&yaml.SingleQuotedStyle != 0:
		return position.NewSpan(off, quotedLen(rest, '\''))
	case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		// only the indicator; the body is not addressable as one token
		return position.NewSpan(off, 1)
	case strings.HasPrefix(rest, n.Value):
		return position.NewSpan(off, len(n.Value))
	default:
		end := strings.IndexAny(rest, "\n#")
		if end < 0 {
			end = len(rest)
		}
		return position.NewSpan(off, len(strings.TrimRight(rest[:end], " \t\r")))
	}
}

func quotedLen(s string, quote byte) int {
	for i := 1; i < len(s); i++ {
		switch {
		case quote == '"' && s[i] == '\\':
			i++
		case s[i] == quote:
			if quote == '\'' && i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

func (me *transpiler) syntaxError(err error) Error {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")

	m := errLineRe.FindStringSubmatch(msg)
	if m == nil {
		return Error{Message: msg, Span: position.Span{}}
	}

	line, _ := strconv.Atoi(m[1])
	start := me.lines.OffsetAt(position.Place{Line: line - 1})
	end := me.lines.OffsetAt(position.Place{Line: line - 1, Character: 1 << 30})
	// skip the indentation so the squiggle starts at the content
	for start < end && (me.src[start] == ' ' || me.src[start] == '\t') {
		start++
	}
	return Error{Message: m[2], Span: position.Span{Start: start, End: end}}
}
