package providers

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/segment"
	"gitlab.com/tozd/go/errors"
)

var (
	propsInterfaceRe = regexp.MustCompile(`(?s)(?:interface\s+Props\s*(?:extends[^{]*)?|type\s+Props\s*=\s*)\{(.*?)\n?\}`)
	propFieldRe      = regexp.MustCompile(`(?m)^\s*(?:readonly\s+)?([A-Za-z_$][\w$]*)(\??)\s*:\s*([^;,\n]+)`)
)

// Prop is one declared property of a component.
type Prop struct {
	Name     string
	Type     string
	Optional bool
}

// ImportSource returns the module a default import named tag comes from in the given script.
func ImportSource(script, tag string) (string, bool) {
	re, err := regexp.Compile(`import\s+` + regexp.QuoteMeta(tag) + `\s+from\s+['"]([^'"]+)['"]`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(script)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveComponent turns a relative component import into a path, relative to the importing file.
func ResolveComponent(importer, spec string) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return "", false
	}
	if !strings.EqualFold(path.Ext(spec), ".astro") {
		return "", false
	}
	return path.Join(path.Dir(importer), spec), true
}

// ReadProps reads the Props declaration from the component script of the file at p.
func ReadProps(fs afero.Fs, p string) ([]Prop, error) {
	data, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, errors.Errorf("reading component %s: %w", p, err)
	}

	text := string(data)
	fm := segment.ScanFrontmatter(text)
	if fm.Status == segment.StatusDoesntExist {
		return nil, nil
	}

	m := propsInterfaceRe.FindStringSubmatch(fm.Inner.Text(text))
	if m == nil {
		return nil, nil
	}

	var props []Prop
	for _, f := range propFieldRe.FindAllStringSubmatch(m[1], -1) {
		props = append(props, Prop{
			Name:     f[1],
			Optional: f[2] == "?",
			Type:     strings.TrimSpace(f[3]),
		})
	}
	return props, nil
}

// PropItems renders props as attribute completions.
func PropItems(props []Prop) []Item {
	items := make([]Item, 0, len(props))
	for _, p := range props {
		item := Item{
			Label:    p.Name,
			Kind:     "property",
			Detail:   p.Type,
			SortText: "_" + p.Name,
		}
		if !p.Optional {
			item.Detail = p.Type + " (required)"
		}

		switch p.Type {
		case "string":
			item.InsertText = fmt.Sprintf(`%s="$1"`, p.Name)
			item.Snippet = true
		case "boolean":
			item.InsertText = p.Name
		default:
			item.InsertText = fmt.Sprintf(`%s={$1}`, p.Name)
			item.Snippet = true
		}
		items = append(items, item)
	}
	return items
}
