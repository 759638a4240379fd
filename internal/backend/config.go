package backend

import "github.com/joseph-ayodele/report-facts/internal/common"

// Config locates the external tools used by the CLI-backed adapters.
type Config struct {
	Pdftotext   string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm    string // if empty -> "pdftoppm"
	Pdfinfo     string // if empty -> "pdfinfo"
	Tesseract   string // if empty -> "tesseract"
	Lang        string // default "eng"
	DPI         int    // rasterization DPI for OCR, default 300
	TessdataDir string
	TempDir     string // scratch space for rendered pages; "" = os default
}

func (c Config) withDefaults() Config {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Pdfinfo == "" {
		c.Pdfinfo = "pdfinfo"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// ConfigFrom copies the tool section of the process configuration.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Pdftotext:   c.Pdftotext,
		Pdftoppm:    c.Pdftoppm,
		Pdfinfo:     c.Pdfinfo,
		Tesseract:   c.Tesseract,
		Lang:        c.Lang,
		DPI:         c.DPI,
		TessdataDir: c.TessdataDir,
	}
}
