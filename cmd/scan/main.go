// Command scan drives a scanner from the terminal: it lists devices, or
// scans one or more pages and writes them to a PDF, or a single page to a
// JPEG when the output ends in .jpg.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/folio/internal/config"
	"github.com/JaimeStill/folio/internal/infrastructure"
	"github.com/JaimeStill/folio/pkg/device/saned"
	"github.com/JaimeStill/folio/pkg/formatting"
	"github.com/JaimeStill/folio/pkg/page"
	"github.com/JaimeStill/folio/pkg/pdf"
	"github.com/JaimeStill/folio/pkg/scan"
)

type options struct {
	config     string
	backend    string
	address    string
	device     string
	mode       string
	resolution int
	quality    int
	pages      int
	title      string
	out        string
	list       bool
	prompt     bool
	overrides  []string
}

type overrideFlag struct{ opts *options }

func (f overrideFlag) String() string { return "" }

func (f overrideFlag) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("option %q must be name=value", v)
	}
	f.opts.overrides = append(f.opts.overrides, v)
	return nil
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", config.BaseConfigFile, "Config file providing the [scanner] section")
	flag.StringVar(&opts.backend, "backend", "", "Scanner backend (saned|pattern)")
	flag.StringVar(&opts.address, "address", "", "saned address host:port")
	flag.StringVar(&opts.device, "device", "", "Device name")
	flag.StringVar(&opts.mode, "mode", "page", "Scan mode (page|preview)")
	flag.IntVar(&opts.resolution, "dpi", 0, "Resolution in DPI")
	flag.IntVar(&opts.quality, "quality", -1, "JPEG quality 0-100 (default: configured)")
	flag.IntVar(&opts.pages, "pages", 1, "Number of pages to scan")
	flag.StringVar(&opts.title, "title", "", "Document title")
	flag.StringVar(&opts.out, "out", "scan.pdf", "Output file (.pdf, or .jpg for one page)")
	flag.BoolVar(&opts.list, "list", false, "List devices and exit")
	flag.BoolVar(&opts.prompt, "prompt", false, "Wait for Enter before each page after the first")
	flag.Var(overrideFlag{&opts}, "o", "Option override name=value (repeatable)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer, logger *slog.Logger) error {
	cfg, err := scannerConfig(opts)
	if err != nil {
		return err
	}

	backend, err := infrastructure.NewScanner(cfg, logger)
	if err != nil {
		return err
	}

	if opts.list {
		devices, err := backend.Devices(ctx)
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		for _, d := range devices {
			fmt.Fprintf(out, "%s\t%s %s (%s)\n", d.Name, d.Vendor, d.Model, d.Type)
		}
		return nil
	}

	req, err := request(opts)
	if err != nil {
		return err
	}

	jpegOut := isJPEG(opts.out)
	if jpegOut && opts.pages != 1 {
		return errors.New("a .jpg output holds exactly one page")
	}
	if opts.pages < 1 {
		return fmt.Errorf("invalid page count %d", opts.pages)
	}

	worker := scan.NewWorker(backend, &cfg.Scan, logger)
	req = worker.Resolve(req)

	prompt := bufio.NewReader(in)
	pages := make([]page.Encoded, 0, opts.pages)
	for i := range opts.pages {
		if i > 0 && opts.prompt {
			fmt.Fprintf(out, "load page %d and press Enter\n", i+1)
			if _, err := prompt.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
		}

		pg, err := worker.Scan(ctx, req, progressPrinter(out, i+1))
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		fmt.Fprintf(out, "\npage %d: %dx%d, %s\n", i+1, pg.Width, pg.Height, formatting.FormatBytes(int64(pg.Size()), 1))
		pages = append(pages, pg)
	}

	if jpegOut {
		return writeFile(opts.out, func(w io.Writer) error {
			_, err := w.Write(pages[0].Data)
			return err
		})
	}

	title := opts.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(opts.out), filepath.Ext(opts.out))
	}

	asm := pdf.NewAssembler(title, float64(req.Resolution))
	for _, pg := range pages {
		if err := asm.Add(pg); err != nil {
			return err
		}
	}

	var written int64
	err = writeFile(opts.out, func(w io.Writer) error {
		n, err := asm.WriteTo(w)
		written = n
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("document written", "path", opts.out, "pages", len(pages), "size", formatting.FormatBytes(written, 1))
	return nil
}

// scannerConfig reads the [scanner] section of the config file when it
// exists and finalizes it. Flags are applied last and win over the
// environment.
func scannerConfig(opts options) (*config.ScannerConfig, error) {
	var file struct {
		Scanner config.ScannerConfig `toml:"scanner"`
	}

	if data, err := os.ReadFile(opts.config); err == nil {
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", opts.config, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &file.Scanner
	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("scanner config: %w", err)
	}

	cfg.Merge(&config.ScannerConfig{
		Backend: opts.backend,
		Saned:   saned.Config{Address: opts.address},
		Scan:    scan.Config{Device: opts.device},
	})
	return cfg, nil
}

func request(opts options) (scan.Request, error) {
	mode, err := scan.ParseMode(opts.mode)
	if err != nil {
		return scan.Request{}, err
	}

	overrides := make(map[string]string, len(opts.overrides))
	for _, o := range opts.overrides {
		name, value, _ := strings.Cut(o, "=")
		overrides[name] = value
	}

	req := scan.Request{
		Device:     opts.device,
		Mode:       mode,
		Resolution: opts.resolution,
		Overrides:  overrides,
	}
	if opts.quality >= 0 {
		req.Quality = &opts.quality
	}
	return req, nil
}

func progressPrinter(out io.Writer, n int) func(int) {
	return func(percent int) {
		fmt.Fprintf(out, "\rpage %d: %3d%%", n, percent)
	}
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
