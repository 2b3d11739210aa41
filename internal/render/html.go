package render

import (
	"bytes"
	"html/template"
	"strconv"

	apperrors "storepivot/internal/errors"
	"storepivot/internal/pivot"
)

// TableID is the element id of the rendered table, the capture target for
// ChromeSurface.
const TableID = "pivot-table"

// indentPx is the left padding added per tree level.
const indentPx = 16

var pageTemplate = template.Must(template.New("pivot").Funcs(template.FuncMap{
	"indent": func(level int) template.CSS {
		return template.CSS("padding-left:" + strconv.Itoa(8+level*indentPx) + "px")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: Arial, Helvetica, sans-serif; font-size: 12px; background: #fff; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: 4px 8px; white-space: nowrap; }
th { background: #f3f4f6; text-align: left; }
td.num { text-align: right; }
tr.group td { font-weight: 600; background: #fafafa; }
tfoot td { font-weight: 700; border-top: 2px solid #6b7280; }
</style>
</head>
<body>
<table id="{{.TableID}}">
<thead><tr>{{range .Table.Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- $keys := .GroupColumns}}
{{- range .Table.Rows}}{{$row := .}}
<tr data-id="{{.ID}}"{{if .Group}} class="group"{{end}}>
{{- range $i, $c := .Cells}}{{if lt $i $keys}}<td{{if eq $i 0}} style="{{indent $row.Level}}"{{end}}>{{$c}}</td>{{else}}<td class="num">{{$c}}</td>{{end}}{{end -}}
</tr>
{{- end}}
</tbody>
<tfoot><tr>{{range $i, $c := .Table.Footer}}{{if lt $i $keys}}<td>{{$c}}</td>{{else}}<td class="num">{{$c}}</td>{{end}}{{end}}</tr></tfoot>
</table>
</body>
</html>
`))

type htmlPage struct {
	Title        string
	TableID      string
	GroupColumns int
	Table        Table
}

// HTMLTable renders rows as a standalone HTML document holding a single
// table with id TableID.
func HTMLTable(rows []pivot.FlatRow, groupKeys []string, aggs []pivot.AggregationSpec, totals pivot.Aggregates) ([]byte, error) {
	return renderPage("Pivot", NewTable(rows, groupKeys, aggs, totals), len(groupKeys))
}

func renderPage(title string, t Table, groupColumns int) ([]byte, error) {
	var buf bytes.Buffer
	p := htmlPage{Title: title, TableID: TableID, GroupColumns: groupColumns, Table: t}
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, apperrors.NewRenderError("failed to render pivot table", err)
	}
	return buf.Bytes(), nil
}
