package email

import (
	"html/template"

	"github.com/smallbiznis/royalty/internal/earnings/format"
)

// newTemplateFuncs resolves the currency prefix at render time so reloaded
// policy applies to the next mail.
func newTemplateFuncs(prefix func() string) template.FuncMap {
	return template.FuncMap{
		"rupiah": func(v int64) string {
			if prefix == nil {
				return format.Currency(v)
			}
			return format.CurrencyWithPrefix(prefix(), v)
		},
	}
}
