// Package diff renders readable differences between expected and actual values in tests.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Exported pretty prints both values, exported fields only, and returns a line diff that turns got into
// want. The result is empty when the printed forms match.
func Exported[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)

	d := diff.Diff(printer.Sprint(got), printer.Sprint(want))
	if d == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\ngot -> want\n\n")
	b.WriteString(d)
	return b.String()
}
