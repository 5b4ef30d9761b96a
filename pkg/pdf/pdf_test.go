package pdf_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/JaimeStill/folio/pkg/jpegenc"
	"github.com/JaimeStill/folio/pkg/page"
	"github.com/JaimeStill/folio/pkg/pdf"
)

func encodedPage(t *testing.T, width, height int, format page.Format) page.Encoded {
	t.Helper()

	raw := page.Raw{
		Pixels: make([]byte, width*height*format.Components()),
		Width:  width,
		Height: height,
		Format: format,
	}
	for i := range raw.Pixels {
		raw.Pixels[i] = byte(i % 251)
	}

	enc, err := jpegenc.Encoder{Quality: 70}.Encode(raw)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return enc
}

func pageImage(t *testing.T, ctx *model.Context, pageNr int) *types.StreamDict {
	t.Helper()

	d, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		t.Fatalf("page %d: %v", pageNr, err)
	}
	res, err := ctx.DereferenceDict(d["Resources"])
	if err != nil {
		t.Fatalf("page %d resources: %v", pageNr, err)
	}
	xobj, err := ctx.DereferenceDict(res["XObject"])
	if err != nil {
		t.Fatalf("page %d xobjects: %v", pageNr, err)
	}
	sd, _, err := ctx.DereferenceStreamDict(xobj["Im0"])
	if err != nil || sd == nil {
		t.Fatalf("page %d image: %v", pageNr, err)
	}
	return sd
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestPageSize(t *testing.T) {
	tests := []struct {
		width, height int
		wantW, wantH  float64
	}{
		{100, 200, 8.4667, 16.9333},
		{150, 150, 12.70, 12.70},
		{2480, 3508, 209.97, 297.01},
	}

	for _, tt := range tests {
		d := pdf.PageSize(tt.width, tt.height, 300)
		if !near(d.WidthMM, tt.wantW) || !near(d.HeightMM, tt.wantH) {
			t.Errorf("%dx%d = %.4fx%.4f mm, want %.4fx%.4f", tt.width, tt.height, d.WidthMM, d.HeightMM, tt.wantW, tt.wantH)
		}
	}

	d := pdf.PageSize(300, 600, 300)
	if d.WidthPt != 72 || d.HeightPt != 144 {
		t.Errorf("points = %gx%g, want 72x144", d.WidthPt, d.HeightPt)
	}
}

func TestWriteTo(t *testing.T) {
	first := encodedPage(t, 100, 200, page.RGB)
	second := encodedPage(t, 150, 150, page.Gray)

	a := pdf.NewAssembler("Quarterly report", 300)
	if err := a.Add(first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.Add(second); err != nil {
		t.Fatalf("add: %v", err)
	}

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("n = %d, buffer holds %d", n, buf.Len())
	}

	data := buf.Bytes()

	t.Run("validates", func(t *testing.T) {
		if err := api.Validate(bytes.NewReader(data), nil); err != nil {
			t.Errorf("validate: %v", err)
		}
	})

	t.Run("page count", func(t *testing.T) {
		count, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			t.Fatalf("page count: %v", err)
		}
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("page dimensions in order", func(t *testing.T) {
		dims, err := api.PageDims(bytes.NewReader(data), nil)
		if err != nil {
			t.Fatalf("page dims: %v", err)
		}
		if len(dims) != 2 {
			t.Fatalf("dims = %d, want 2", len(dims))
		}

		want := []pdf.Dimensions{
			pdf.PageSize(100, 200, 300),
			pdf.PageSize(150, 150, 300),
		}
		for i, d := range dims {
			if !near(d.Width, want[i].WidthPt) || !near(d.Height, want[i].HeightPt) {
				t.Errorf("page %d = %gx%g pt, want %gx%g", i+1, d.Width, d.Height, want[i].WidthPt, want[i].HeightPt)
			}
		}
	})

	t.Run("embeds jpeg unchanged", func(t *testing.T) {
		ctx, err := api.ReadContext(bytes.NewReader(data), nil)
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		tests := []struct {
			page       int
			want       page.Encoded
			colorSpace string
		}{
			{1, first, "DeviceRGB"},
			{2, second, "DeviceGray"},
		}

		for _, tt := range tests {
			img := pageImage(t, ctx, tt.page)
			if !bytes.Equal(img.Raw, tt.want.Data) {
				t.Errorf("page %d: image stream differs from encoded jpeg", tt.page)
			}
			if f := img.Dict.NameEntry("Filter"); f == nil || *f != "DCTDecode" {
				t.Errorf("page %d: filter = %v, want DCTDecode", tt.page, f)
			}
			if cs := img.Dict.NameEntry("ColorSpace"); cs == nil || *cs != tt.colorSpace {
				t.Errorf("page %d: color space = %v, want %s", tt.page, cs, tt.colorSpace)
			}
		}
	})

	t.Run("records title and creator", func(t *testing.T) {
		ctx, err := api.ReadContext(bytes.NewReader(data), nil)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if ctx.Info == nil {
			t.Fatal("missing info dict")
		}

		info, err := ctx.DereferenceDict(*ctx.Info)
		if err != nil {
			t.Fatalf("info: %v", err)
		}

		tests := map[string]string{
			"Title":   "Quarterly report",
			"Creator": pdf.DefaultCreator,
		}
		for key, want := range tests {
			got, err := ctx.DereferenceText(info[key])
			if err != nil {
				t.Fatalf("%s: %v", key, err)
			}
			if got != want {
				t.Errorf("%s = %q, want %q", key, got, want)
			}
		}
	})

	t.Run("ends with eof marker", func(t *testing.T) {
		if !bytes.HasSuffix(bytes.TrimSpace(data), []byte("%%EOF")) {
			t.Error("missing EOF marker")
		}
	})
}

func TestNonASCIITitle(t *testing.T) {
	a := pdf.NewAssembler("Été 2026", 300)
	a.SetCreator("folio 1.0")
	if err := a.Add(encodedPage(t, 32, 32, page.RGB)); err != nil {
		t.Fatalf("add: %v", err)
	}

	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, err := api.ReadContext(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	info, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		t.Fatalf("info: %v", err)
	}

	title, err := ctx.DereferenceText(info["Title"])
	if err != nil {
		t.Fatalf("title: %v", err)
	}
	if title != "Été 2026" {
		t.Errorf("title = %q, want %q", title, "Été 2026")
	}

	creator, err := ctx.DereferenceText(info["Creator"])
	if err != nil {
		t.Fatalf("creator: %v", err)
	}
	if creator != "folio 1.0" {
		t.Errorf("creator = %q, want %q", creator, "folio 1.0")
	}
}

func TestAssemblerConsumedOnce(t *testing.T) {
	a := pdf.NewAssembler("once", 150)
	a.Add(encodedPage(t, 16, 16, page.Gray))

	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := a.WriteTo(&buf); !errors.Is(err, pdf.ErrConsumed) {
		t.Errorf("second write err = %v, want ErrConsumed", err)
	}
	if err := a.Add(encodedPage(t, 16, 16, page.Gray)); !errors.Is(err, pdf.ErrConsumed) {
		t.Errorf("add after write err = %v, want ErrConsumed", err)
	}
}

func TestAssemblerErrors(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		var buf bytes.Buffer
		if _, err := pdf.NewAssembler("empty", 300).WriteTo(&buf); !errors.Is(err, pdf.ErrNoPages) {
			t.Errorf("err = %v, want ErrNoPages", err)
		}
	})

	t.Run("invalid resolution", func(t *testing.T) {
		a := pdf.NewAssembler("zero", 0)
		a.Add(encodedPage(t, 8, 8, page.Gray))

		var buf bytes.Buffer
		if _, err := a.WriteTo(&buf); !errors.Is(err, pdf.ErrInvalidResolution) {
			t.Errorf("err = %v, want ErrInvalidResolution", err)
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		a := pdf.NewAssembler("bad", 300)
		if err := a.Add(page.Encoded{Width: 10, Height: 10}); !errors.Is(err, pdf.ErrInvalidPage) {
			t.Errorf("err = %v, want ErrInvalidPage", err)
		}
	})
}
