package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-pdf/fpdf"

	"notecast/internal/artifacts"
	"notecast/internal/fileutil"
	"notecast/internal/logging"
)

// DocumentTitle heads every rendered document.
const DocumentTitle = "Video Notes"

const (
	margin       = 72.0
	fontFamily   = "Helvetica"
	titleSize    = 24.0
	headingSize  = 18.0
	subheadSize  = 16.0
	bodySize     = 12.0
	bodyLeading  = 14.0
	sectionSpace = 12.0
)

// Paths resolves artifact locations.
type Paths interface {
	PathFor(id string, kind artifacts.Kind) string
}

// Renderer implements stage.Renderer with go-pdf/fpdf.
type Renderer struct {
	paths  Paths
	logger *slog.Logger
}

// New constructs a Renderer writing documents to paths.
func New(paths Paths, logger *slog.Logger) *Renderer {
	return &Renderer{paths: paths, logger: logging.NewComponentLogger(logger, "render")}
}

// Render lays out notes and writes the document for videoID, replacing any
// earlier document.
func (r *Renderer) Render(ctx context.Context, notes, videoID string) (string, error) {
	if r.paths == nil {
		return "", errors.New("artifact paths unavailable")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest := r.paths.PathFor(videoID, artifacts.KindDocument)
	logger := logging.WithContext(ctx, r.logger)
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "remove previous document failed", "render_remove_failed",
			logging.String("path", dest),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the atomic write will replace it"),
		)
	}

	blocks := Parse(notes)
	data, err := Layout(blocks)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := fileutil.NonEmpty(dest); err != nil {
		return "", fmt.Errorf("verify document: %w", err)
	}
	logger.Info("document rendered",
		logging.String("path", dest),
		logging.Int("blocks", len(blocks)),
		logging.Int("bytes", len(data)),
		logging.String(logging.FieldEventType, "document_rendered"),
	)
	return dest, nil
}

// Layout produces a letter-sized PDF for blocks.
func Layout(blocks []Block) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(DocumentTitle, true)
	pdf.SetCreator("notecast", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont(fontFamily, "B", titleSize)
	pdf.CellFormat(0, titleSize+6, DocumentTitle, "", 1, "C", false, 0, "")
	pdf.Ln(30)

	for i, block := range blocks {
		switch block.Kind {
		case BlockHeading:
			if i > 0 {
				pdf.Ln(20)
			}
			pdf.SetFont(fontFamily, "B", headingSize)
			pdf.MultiCell(0, headingSize+4, tr(block.Text), "", "L", false)
			pdf.Ln(20)
		case BlockSubheading:
			if i > 0 {
				pdf.Ln(15)
			}
			pdf.SetFont(fontFamily, "B", subheadSize)
			pdf.MultiCell(0, subheadSize+4, tr(block.Text), "", "L", false)
			pdf.Ln(15)
		case BlockBreak:
			pdf.Ln(sectionSpace)
		default:
			pdf.SetFont(fontFamily, "", bodySize)
			pdf.MultiCell(0, bodyLeading, tr(block.Text), "", "L", false)
			pdf.Ln(bodySize - bodyLeading + sectionSpace/2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	if buf.Len() == 0 {
		return nil, errors.New("layout pdf: empty output")
	}
	return buf.Bytes(), nil
}
