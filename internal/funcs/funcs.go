package funcs

import (
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var TemplateFuncs = template.FuncMap{
	"formatMoney": func(currency string, amount float64) string {
		p := message.NewPrinter(language.English)
		return p.Sprintf("%s %.2f", currency, amount)
	},
	"formatDate": func(t time.Time) string {
		return t.Format("2 January 2006")
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}
