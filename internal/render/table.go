package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/HenryOlvera28/landing/internal/domain"
	"github.com/HenryOlvera28/landing/internal/tally"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// TablePresenter prints the tally as a terminal table.
type TablePresenter struct {
	W io.Writer
}

func (p TablePresenter) Render(_ context.Context, entries []domain.TallyEntry) error {
	_, err := io.WriteString(p.W, TableString(entries)+"\n")
	return err
}

func TableString(entries []domain.TallyEntry) string {
	if len(entries) == 0 {
		return EmptyMessage
	}

	rows := make([][]string, 0, len(entries)+1)
	for _, e := range entries {
		rows = append(rows, []string{e.SubjectID, strconv.Itoa(e.Count)})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(tally.Total(entries))})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Product", "Total votes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

var htmlTable = template.Must(template.New("tally").Parse(`{{if .}}<table class="tally">
  <thead>
    <tr><th>Product</th><th>Total votes</th></tr>
  </thead>
  <tbody>
{{- range .}}
    <tr><td>{{.SubjectID}}</td><td>{{.Count}}</td></tr>
{{- end}}
  </tbody>
</table>{{else}}<p class="empty">No votes yet.</p>{{end}}`))

// HTMLPresenter writes the tally as an HTML table fragment.
type HTMLPresenter struct {
	W io.Writer
}

func (p HTMLPresenter) Render(_ context.Context, entries []domain.TallyEntry) error {
	if err := htmlTable.Execute(p.W, entries); err != nil {
		return fmt.Errorf("render html tally: %w", err)
	}
	return nil
}

func HTMLTable(entries []domain.TallyEntry) (template.HTML, error) {
	var buf bytes.Buffer
	if err := (HTMLPresenter{W: &buf}).Render(context.Background(), entries); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
