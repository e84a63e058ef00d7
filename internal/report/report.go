// Package report renders the case transcription PDF.
package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"legaldesk/internal/model"
)

const (
	fontFamily   = "Body"
	coreFamily   = "Helvetica"
	marginLeft   = 20.0
	textWidth    = 170.0
	pageBreakY   = 250.0
	lineHeight   = 5.0
	dateLayout   = "02.01.2006"
	blockSpacing = 20.0
)

// fallbackFonts are tried in order when no font path is configured.
var fallbackFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

// Document is one recognised photo in display order.
type Document struct {
	OriginalName string
	UploadedAt   time.Time
	Confidence   float64
	Text         string
	Dates        []string
	Numbers      []string
	Names        []string
	Amounts      []string
}

// Block is one laid out piece of text.
type Block struct {
	Size    float64
	Text    string
	Wrap    bool
	Advance float64
}

// Layout lists the blocks of the report in reading order.
func Layout(c *model.Case, docs []Document) []Block {
	blocks := []Block{
		{Size: 20, Text: "Дело: " + c.Title, Advance: 20},
		{Size: 16, Text: "Клиент: " + c.ClientName, Advance: 20},
		{Size: 14, Text: "Номер дела: " + c.CaseNumber, Advance: 20},
		{Size: 12, Text: "Дата создания: " + c.CreatedAt.Format(dateLayout), Advance: 15},
		{Size: 12, Text: "Тип дела: " + c.CaseType, Advance: 15},
		{Size: 12, Text: "Приоритет: " + c.Priority, Advance: 20},
	}
	if c.Description != "" {
		blocks = append(blocks,
			Block{Size: 12, Text: "Описание:", Advance: 15},
			Block{Size: 12, Text: c.Description, Wrap: true, Advance: 10},
		)
	}
	blocks = append(blocks, Block{Size: 16, Text: "Расшифровки документов", Advance: 20})

	for i, d := range docs {
		blocks = append(blocks,
			Block{Size: 14, Text: fmt.Sprintf("Документ %d: %s", i+1, d.OriginalName), Advance: 15},
			Block{Size: 10, Text: "Загружен: " + d.UploadedAt.Format(dateLayout), Advance: 10},
			Block{Size: 10, Text: fmt.Sprintf("Уверенность OCR: %.1f%%", d.Confidence*100), Advance: 15},
			Block{Size: 12, Text: "Текст документа:", Advance: 10},
			Block{Size: 10, Text: d.Text, Wrap: true, Advance: 10},
		)
		blocks = appendList(blocks, "Извлеченные даты: ", d.Dates)
		blocks = appendList(blocks, "Извлеченные номера: ", d.Numbers)
		blocks = appendList(blocks, "Извлеченные имена: ", d.Names)
		blocks = appendList(blocks, "Извлеченные суммы: ", d.Amounts)
		blocks[len(blocks)-1].Advance += blockSpacing
	}
	return blocks
}

func appendList(blocks []Block, label string, values []string) []Block {
	if len(values) == 0 {
		return blocks
	}
	return append(blocks, Block{Size: 10, Text: label + strings.Join(values, ", "), Wrap: true, Advance: 10})
}

// Renderer writes Layout output with fpdf. Cyrillic needs a UTF-8 TrueType
// font; without one the core Helvetica font is used and characters outside
// cp1252 are lost.
type Renderer struct {
	fontPath string
}

// NewRenderer picks fontPath when it exists, else the first installed
// fallback font.
func NewRenderer(fontPath string) *Renderer {
	candidates := fallbackFonts
	if fontPath != "" {
		candidates = append([]string{fontPath}, fallbackFonts...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return &Renderer{fontPath: p}
		}
	}
	return &Renderer{}
}

func (r *Renderer) UnicodeFont() bool {
	return r.fontPath != ""
}

func (r *Renderer) Render(c *model.Case, docs []Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, 20, marginLeft)
	pdf.SetAutoPageBreak(true, 20)

	family := coreFamily
	tr := func(s string) string { return s }
	if r.fontPath != "" {
		ttf, err := os.ReadFile(r.fontPath)
		if err != nil {
			return nil, fmt.Errorf("read font failed: %w", err)
		}
		pdf.AddUTF8FontFromBytes(fontFamily, "", ttf)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load font failed: %w", err)
		}
		family = fontFamily
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()

	y := 30.0
	for _, b := range Layout(c, docs) {
		if y > pageBreakY {
			pdf.AddPage()
			y = 30
		}
		pdf.SetFont(family, "", b.Size)
		pdf.SetXY(marginLeft, y)
		if b.Wrap {
			pdf.MultiCell(textWidth, lineHeight, tr(b.Text), "", "L", false)
			y = pdf.GetY() + b.Advance
			continue
		}
		pdf.CellFormat(textWidth, lineHeight, tr(b.Text), "", 0, "L", false, 0, "")
		y += b.Advance
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf failed: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf failed: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name of the report.
func FileName(c *model.Case) string {
	return fmt.Sprintf("case_%s_transcriptions.pdf", c.CaseNumber)
}
