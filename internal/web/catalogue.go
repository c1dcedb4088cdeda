package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvtools/internal/schema"
)

// ColumnView is one column as the API and catalogue show it.
type ColumnView struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Key      string `json:"key,omitempty"` // "partition", "sort" or empty
}

// ModelView is a registry model as the API and catalogue show it.
type ModelView struct {
	Name         string       `json:"name"`
	PartitionKey string       `json:"partition_key"`
	SortKey      string       `json:"sort_key,omitempty"`
	ColumnCount  int          `json:"column_count"`
	Header       string       `json:"header"`
	Columns      []ColumnView `json:"columns"`
}

func newModelView(m *schema.Model) ModelView {
	sk, _ := m.SortKey()
	v := ModelView{
		Name:         m.Name(),
		PartitionKey: m.PartitionKey(),
		SortKey:      sk,
		ColumnCount:  m.ColumnCount(),
		Header:       m.HeaderLine(),
	}
	for _, f := range m.Fields() {
		c := ColumnView{Name: f.Name, Type: f.Type.String(), Nullable: f.Nullable}
		switch f.Name {
		case v.PartitionKey:
			c.Key = "partition"
		case sk:
			c.Key = "sort"
		}
		v.Columns = append(v.Columns, c)
	}
	return v
}

func modelViews() []ModelView {
	all := schema.All()
	views := make([]ModelView, len(all))
	for i, m := range all {
		views[i] = newModelView(m)
	}
	return views
}

// Catalogue renders the registry as an HTML page.
func Catalogue(models []ModelView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<title>csvtools models</title>`)
		b.WriteString(`<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse;margin-bottom:2rem}` +
			`td,th{border:1px solid #ccc;padding:.25rem .5rem;text-align:left}code{background:#f4f4f4}</style>`)
		b.WriteString(`</head><body><h1>Registered models</h1>`)

		for _, m := range models {
			fmt.Fprintf(&b, `<h2 id="%s">%s</h2>`, templ.EscapeString(m.Name), templ.EscapeString(m.Name))
			fmt.Fprintf(&b, `<p>%d columns. Validate with <code>POST /api/models/%s/validate</code>.</p>`,
				m.ColumnCount, templ.EscapeString(m.Name))
			b.WriteString(`<table><thead><tr><th>#</th><th>Column</th><th>Type</th><th>Nullable</th><th>Key</th></tr></thead><tbody>`)
			for i, c := range m.Columns {
				nullable := ""
				if c.Nullable {
					nullable = "yes"
				}
				fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					i+1, templ.EscapeString(c.Name), c.Type, nullable, c.Key)
			}
			b.WriteString(`</tbody></table>`)
		}

		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
