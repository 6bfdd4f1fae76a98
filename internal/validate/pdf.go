package validate

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// WritePDF renders the report as a PDF for circulation outside the team.
func (r *Report) WritePDF(path string) error {
	cfg := config.NewBuilder().Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Data validation report", props.Text{Size: 14, Style: fontstyle.Bold}),
	)
	m.AddRow(8,
		text.NewCol(12, fmt.Sprintf("Report %s, generated %s", r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05 UTC")), props.Text{Size: 9}),
	)

	for _, f := range r.Findings {
		style := fontstyle.Normal
		if f.Level != LevelPass {
			style = fontstyle.Bold
		}
		m.AddRow(6,
			text.NewCol(2, strings.ToUpper(string(f.Level)), props.Text{Size: 9, Style: style}),
			text.NewCol(10, f.Message, props.Text{Size: 9}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return err
	}
	return doc.Save(path)
}
