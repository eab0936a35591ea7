package formula

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Image is a picture embedded in a formula document
type Image struct {
	Name string // sheet!cell
	MIME string
	Data []byte
}

// Document is a formula rendered as prompt text plus its pictures
type Document struct {
	Text   string
	Images []Image
}

// ParseSpreadsheet renders every sheet of an xlsx workbook as pipe-separated
// rows under a "## <sheet>" heading and collects embedded pictures the
// upstream accepts. Blank rows and trailing blank cells are dropped.
func ParseSpreadsheet(r io.Reader) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	doc := &Document{}
	var b strings.Builder

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		fmt.Fprintf(&b, "## %s\n", sheet)
		for _, row := range rows {
			if line := renderRow(row); line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		b.WriteByte('\n')

		images, err := sheetImages(f, sheet)
		if err != nil {
			return nil, err
		}
		doc.Images = append(doc.Images, images...)
	}

	doc.Text = strings.TrimSpace(b.String())
	return doc, nil
}

func renderRow(row []string) string {
	last := -1
	for i, cell := range row {
		if strings.TrimSpace(cell) != "" {
			last = i
		}
	}
	if last < 0 {
		return ""
	}

	cells := make([]string, last+1)
	for i := range cells {
		cells[i] = strings.TrimSpace(row[i])
	}
	return strings.Join(cells, " | ")
}

func sheetImages(f *excelize.File, sheet string) ([]Image, error) {
	cells, err := f.GetPictureCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("list pictures on %q: %w", sheet, err)
	}

	var images []Image
	for _, cell := range cells {
		pics, err := f.GetPictures(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("read picture %s!%s: %w", sheet, cell, err)
		}
		for _, pic := range pics {
			mime, ok := mimeForExtension(pic.Extension)
			if !ok || len(pic.File) == 0 {
				continue
			}
			images = append(images, Image{
				Name: sheet + "!" + cell,
				MIME: mime,
				Data: pic.File,
			})
		}
	}
	return images, nil
}

func mimeForExtension(ext string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "image/png", true
	case "jpg", "jpeg":
		return "image/jpeg", true
	case "gif":
		return "image/gif", true
	case "webp":
		return "image/webp", true
	}
	return "", false
}
