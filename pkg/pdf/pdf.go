// Package pdf assembles JPEG-encoded pages into a single PDF document.
// Page images are embedded as DCT streams without re-encoding, and each
// page's MediaBox is derived from the image's pixel size and the scan
// resolution.
package pdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/JaimeStill/folio/pkg/page"
)

// BufferSize is the size of the buffered writer used by WriteTo.
const BufferSize = 128 * 1024

// DefaultCreator is recorded in the document information dictionary.
// The Producer entry is always stamped by the pdf writer.
const DefaultCreator = "folio"

var (
	// ErrConsumed indicates the assembler already produced its document.
	ErrConsumed = errors.New("pdf assembler already consumed")
	// ErrNoPages indicates WriteTo was called on an empty assembler.
	ErrNoPages = errors.New("pdf has no pages")
	// ErrInvalidPage indicates a page with no image data or geometry.
	ErrInvalidPage = errors.New("invalid pdf page")
	// ErrInvalidResolution indicates a non-positive dpi.
	ErrInvalidResolution = errors.New("invalid resolution")
)

// Assembler collects encoded pages in insertion order and writes them as one
// document. An Assembler produces exactly one document.
type Assembler struct {
	title    string
	creator  string
	dpi      float64
	pages    []page.Encoded
	consumed bool
}

// NewAssembler creates an assembler for pages scanned at dpi.
func NewAssembler(title string, dpi float64) *Assembler {
	return &Assembler{
		title:   title,
		creator: DefaultCreator,
		dpi:     dpi,
	}
}

// SetCreator overrides the creator recorded in the document information.
func (a *Assembler) SetCreator(creator string) {
	a.creator = creator
}

// Add appends p as the next page.
func (a *Assembler) Add(p page.Encoded) error {
	if a.consumed {
		return ErrConsumed
	}
	if len(p.Data) == 0 || p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidPage, p.Width, p.Height, len(p.Data))
	}
	a.pages = append(a.pages, p)
	return nil
}

// Len is the number of pages added.
func (a *Assembler) Len() int {
	return len(a.pages)
}

// WriteTo writes the document to w and consumes the assembler.
func (a *Assembler) WriteTo(w io.Writer) (int64, error) {
	if a.consumed {
		return 0, ErrConsumed
	}
	if a.dpi <= 0 {
		return 0, fmt.Errorf("%w: %g dpi", ErrInvalidResolution, a.dpi)
	}
	if len(a.pages) == 0 {
		return 0, ErrNoPages
	}
	a.consumed = true

	xRefTable, err := a.build()
	if err != nil {
		return 0, fmt.Errorf("build pdf: %w", err)
	}
	a.pages = nil

	cw := &countingWriter{w: w}
	bw := bufio.NewWriterSize(cw, BufferSize)

	if err := api.WriteContext(pdfcpu.CreateContext(xRefTable, nil), bw); err != nil {
		return cw.n, fmt.Errorf("write pdf: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("flush pdf: %w", err)
	}
	return cw.n, nil
}

func (a *Assembler) build() (*model.XRefTable, error) {
	xRefTable, err := pdfcpu.CreateXRefTableWithRootDict()
	if err != nil {
		return nil, err
	}

	catalog, err := xRefTable.Catalog()
	if err != nil {
		return nil, err
	}

	pagesDict := types.Dict(map[string]types.Object{
		"Type": types.Name("Pages"),
	})
	pagesRef, err := xRefTable.IndRefForNewObject(pagesDict)
	if err != nil {
		return nil, err
	}

	kids := make(types.Array, 0, len(a.pages))
	for _, p := range a.pages {
		ref, err := a.addPage(xRefTable, *pagesRef, p)
		if err != nil {
			return nil, err
		}
		kids = append(kids, *ref)
	}

	pagesDict.Insert("Kids", kids)
	pagesDict.Insert("Count", types.Integer(len(kids)))
	catalog.Insert("Pages", *pagesRef)
	xRefTable.PageCount = len(kids)

	info, err := a.info()
	if err != nil {
		return nil, err
	}
	if xRefTable.Info, err = xRefTable.IndRefForNewObject(info); err != nil {
		return nil, err
	}

	return xRefTable, nil
}

func (a *Assembler) addPage(xRefTable *model.XRefTable, parent types.IndirectRef, p page.Encoded) (*types.IndirectRef, error) {
	img, err := model.CreateDCTImageStreamDict(xRefTable, p.Data, p.Width, p.Height, 8, p.Format.ColorSpace())
	if err != nil {
		return nil, fmt.Errorf("image stream: %w", err)
	}
	imgRef, err := xRefTable.IndRefForNewObject(*img)
	if err != nil {
		return nil, err
	}

	dims := PageSize(p.Width, p.Height, a.dpi)

	content := &types.StreamDict{
		Dict:           types.NewDict(),
		Content:        fmt.Appendf(nil, "q\n%.4f 0 0 %.4f 0 0 cm\n/Im0 Do\nQ\n", dims.WidthPt, dims.HeightPt),
		FilterPipeline: []types.PDFFilter{{Name: filter.Flate, DecodeParms: nil}},
	}
	content.InsertName("Filter", filter.Flate)
	if err := content.Encode(); err != nil {
		return nil, fmt.Errorf("content stream: %w", err)
	}
	contentRef, err := xRefTable.IndRefForNewObject(*content)
	if err != nil {
		return nil, err
	}

	procSet := "ImageC"
	if p.Format == page.Gray {
		procSet = "ImageB"
	}

	pageDict := types.Dict(map[string]types.Object{
		"Type":     types.Name("Page"),
		"Parent":   parent,
		"MediaBox": types.NewNumberArray(0, 0, dims.WidthPt, dims.HeightPt),
		"Contents": *contentRef,
		"Resources": types.Dict(map[string]types.Object{
			"XObject": types.Dict(map[string]types.Object{
				"Im0": *imgRef,
			}),
			"ProcSet": types.Array{types.Name("PDF"), types.Name(procSet)},
		}),
	})

	return xRefTable.IndRefForNewObject(pageDict)
}

func (a *Assembler) info() (types.Dict, error) {
	d := types.NewDict()

	title, err := types.EscapedUTF16String(a.title)
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}
	d.InsertString("Title", *title)

	if a.creator != "" {
		creator, err := types.EscapedUTF16String(a.creator)
		if err != nil {
			return nil, fmt.Errorf("creator: %w", err)
		}
		d.InsertString("Creator", *creator)
	}

	return d, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
