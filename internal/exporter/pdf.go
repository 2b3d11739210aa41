package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"math"

	"github.com/go-pdf/fpdf"

	apperrors "storepivot/internal/errors"
)

// Surface is a rendered table the UI layer can rasterize. Capture is called
// once per PDF export.
type Surface interface {
	Capture(ctx context.Context) (image.Image, error)
}

// PageLayout is the fixed page geometry for PDF exports, in millimetres.
type PageLayout struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

// LandscapeA4 is a 297x210 mm page with 10 mm margins.
var LandscapeA4 = PageLayout{WidthMM: 297, HeightMM: 210, MarginMM: 10}

// ContentWidth returns the printable width.
func (l PageLayout) ContentWidth() float64 { return l.WidthMM - 2*l.MarginMM }

// ContentHeight returns the printable height.
func (l PageLayout) ContentHeight() float64 { return l.HeightMM - 2*l.MarginMM }

func (l PageLayout) validate() error {
	if l.ContentWidth() <= 0 || l.ContentHeight() <= 0 {
		return apperrors.NewInvalidInputError(
			fmt.Sprintf("page %gx%g mm leaves no room inside a %g mm margin", l.WidthMM, l.HeightMM, l.MarginMM))
	}
	return nil
}

// Page is one vertical slice of the captured image and its printed height.
type Page struct {
	Image    image.Image
	HeightMM float64
}

// Paginate scales img to the page content width and cuts it into
// consecutive vertical slices no taller than one page. Every slice comes
// from img itself; nothing is re-rendered.
func Paginate(img image.Image, layout PageLayout) ([]Page, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.NewRenderError("captured surface is empty", nil)
	}

	pxPerMM := float64(b.Dx()) / layout.ContentWidth()
	slicePx := int(math.Floor(layout.ContentHeight() * pxPerMM))
	if slicePx < 1 {
		slicePx = 1
	}

	var pages []Page
	for y := b.Min.Y; y < b.Max.Y; y += slicePx {
		bottom := y + slicePx
		if bottom > b.Max.Y {
			bottom = b.Max.Y
		}
		rect := image.Rect(b.Min.X, y, b.Max.X, bottom)
		pages = append(pages, Page{
			Image:    subImage(img, rect),
			HeightMM: float64(rect.Dy()) / pxPerMM,
		})
	}
	return pages, nil
}

func subImage(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// ExportPDF captures surface once and writes the paginated image to
// <dir>/<stem>.pdf. Only one PDF export may use the exporter's surface at a
// time; an overlapping call fails with ErrExportInProgress.
func (e *Exporter) ExportPDF(ctx context.Context, surface Surface, stem string) (string, error) {
	if err := validateStem(stem); err != nil {
		return "", err
	}
	if surface == nil {
		return "", apperrors.NewInvalidInputError("pdf export needs a rendered surface")
	}
	if !e.surface.TryAcquire(1) {
		return "", apperrors.NewExportInProgressError(string(FormatPDF))
	}
	defer e.surface.Release(1)

	img, err := surface.Capture(ctx)
	if err != nil {
		return "", apperrors.NewRenderError("failed to capture surface", err)
	}

	pages, err := Paginate(img, e.opts.Page)
	if err != nil {
		return "", err
	}

	e.logger.InfoContext(ctx, "Writing PDF export",
		slog.String("stem", stem),
		slog.Int("image_width", img.Bounds().Dx()),
		slog.Int("image_height", img.Bounds().Dy()),
		slog.Int("page_count", len(pages)))

	return e.writeArtifact(ctx, stem, FormatPDF, func(w io.Writer) error {
		return WritePDF(w, pages, e.opts.Page)
	})
}

// WritePDF writes one landscape page per slice, each image placed at the
// top-left margin at full content width.
func WritePDF(w io.Writer, pages []Page, layout PageLayout) error {
	if len(pages) == 0 {
		return apperrors.NewEmptyExportError(string(FormatPDF))
	}

	// Size is already landscape; "P" keeps it as given.
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: layout.WidthMM, Ht: layout.HeightMM},
	})
	doc.SetMargins(layout.MarginMM, layout.MarginMM, layout.MarginMM)
	doc.SetAutoPageBreak(false, 0)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, p := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Image); err != nil {
			return apperrors.NewRenderError(fmt.Sprintf("failed to encode page %d", i+1), err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.AddPage()
		doc.ImageOptions(name, layout.MarginMM, layout.MarginMM, layout.ContentWidth(), p.HeightMM, false, opts, 0, "")
		if err := doc.Error(); err != nil {
			return apperrors.NewRenderError(fmt.Sprintf("failed to place page %d", i+1), err)
		}
	}

	if err := doc.Output(w); err != nil {
		return apperrors.NewStorageError("failed to write PDF", err)
	}
	return nil
}
