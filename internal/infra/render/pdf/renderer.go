package pdf

import (
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/bryanwahyu/callscore/internal/domain/report"
)

const (
	fontFamily = "Helvetica"
	margin     = 12.7 // 0.5 inch
	lineHeight = 5.5
	bullet     = "•"
)

type rgb struct{ r, g, b int }

var (
	darkBlue  = rgb{0, 0, 139}
	darkGreen = rgb{0, 100, 0}
	lightGrey = rgb{211, 211, 211}
	black     = rgb{0, 0, 0}
	white     = rgb{245, 245, 245}
)

// Renderer writes report documents as A4 PDFs.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Render lays out the block sequence and writes the PDF to path.
func (r *Renderer) Render(ctx context.Context, doc report.Document, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(margin, margin, margin)
	p.SetAutoPageBreak(true, margin)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	for _, b := range doc.Blocks {
		switch b.Kind {
		case report.BlockTitle:
			setText(p, darkBlue)
			p.SetFont(fontFamily, "B", 24)
			p.CellFormat(0, 12, tr(b.Text), "", 1, "C", false, 0, "")
			p.Ln(8)
		case report.BlockKeyValueTable:
			keyValueTable(p, tr, b.Rows)
			p.Ln(10)
		case report.BlockScoreTable:
			scoreTable(p, tr, b.Rows)
			p.Ln(7)
		case report.BlockHeading:
			headingBlock(p, tr, b)
		case report.BlockParagraph:
			setText(p, black)
			p.SetFont(fontFamily, "", 10)
			p.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
			p.Ln(1)
		case report.BlockBulletList:
			setText(p, black)
			p.SetFont(fontFamily, "", 10)
			for _, item := range b.Items {
				p.MultiCell(0, lineHeight, tr(bullet+" "+item), "", "L", false)
			}
			p.Ln(3)
		case report.BlockPageBreak:
			p.AddPage()
		}
	}

	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

func headingBlock(p *fpdf.Fpdf, tr func(string) string, b report.Block) {
	switch b.Level {
	case report.LevelSection:
		p.Ln(4)
		setText(p, darkBlue)
		p.SetFont(fontFamily, "B", 16)
		p.MultiCell(0, 8, tr(b.Text), "", "L", false)
		p.Ln(2)
	case report.LevelSubsection:
		p.Ln(3)
		setText(p, darkGreen)
		p.SetFont(fontFamily, "B", 14)
		p.MultiCell(0, 7, tr(b.Text), "", "L", false)
		p.Ln(1)
	default:
		setText(p, black)
		p.SetFont(fontFamily, "B", 11)
		p.MultiCell(0, 6, tr(b.Text), "", "L", false)
	}
}

func keyValueTable(p *fpdf.Fpdf, tr func(string) string, rows [][]string) {
	p.SetFont(fontFamily, "", 12)
	setText(p, black)
	p.SetDrawColor(black.r, black.g, black.b)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		setFill(p, lightGrey)
		p.CellFormat(50, 9, tr(row[0]), "1", 0, "L", true, 0, "")
		p.CellFormat(100, 9, tr(row[1]), "1", 1, "L", false, 0, "")
	}
}

func scoreTable(p *fpdf.Fpdf, tr func(string) string, rows [][]string) {
	widths := []float64{90, 25, 40}
	last := len(rows) - 1
	for i, row := range rows {
		fill := false
		switch {
		case i == 0:
			setFill(p, darkBlue)
			setText(p, white)
			p.SetFont(fontFamily, "B", 10)
			fill = true
		case i == last:
			setFill(p, lightGrey)
			setText(p, black)
			p.SetFont(fontFamily, "B", 10)
			fill = true
		default:
			setText(p, black)
			p.SetFont(fontFamily, "", 10)
		}
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			ln := 0
			if j == len(widths)-1 || j == len(row)-1 {
				ln = 1
			}
			p.CellFormat(widths[j], 8, tr(cell), "1", ln, "C", fill, 0, "")
		}
	}
}

func setText(p *fpdf.Fpdf, c rgb) { p.SetTextColor(c.r, c.g, c.b) }

func setFill(p *fpdf.Fpdf, c rgb) { p.SetFillColor(c.r, c.g, c.b) }
