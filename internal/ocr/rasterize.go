package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer converts PDF pages to PNG images for the vision providers.
// It shells out to pdftoppm (poppler) and falls back to mutool (mupdf) when
// poppler is unavailable or fails for environment reasons.
type Rasterizer struct {
	log *slog.Logger
	dpi int
}

func NewRasterizer(log *slog.Logger) *Rasterizer {
	return &Rasterizer{log: log, dpi: 150}
}

// Pages returns one PNG per page, in page order.
func (r *Rasterizer) Pages(ctx context.Context, content []byte) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "ocr-pages-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		return nil, err
	}

	pages, popplerErr := r.pdftoppm(ctx, dir, src)
	if popplerErr == nil {
		return pages, nil
	}
	r.log.Warn("pdftoppm unavailable or failed, trying mutool", "err", popplerErr)

	pages, mutoolErr := r.mutool(ctx, dir, src)
	if mutoolErr == nil {
		return pages, nil
	}
	return nil, &UnsupportedInputError{
		MimeType: "application/pdf",
		Reason:   fmt.Sprintf("pdf rasterization failed: %v; %v", popplerErr, mutoolErr),
	}
}

func (r *Rasterizer) pdftoppm(ctx context.Context, dir, src string) ([][]byte, error) {
	out := filepath.Join(dir, "pop")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-r", strconv.Itoa(r.dpi), "-png", src, out)
	if msg, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %v: %s", err, strings.TrimSpace(string(msg)))
	}
	return collectPages(dir, "pop-")
}

func (r *Rasterizer) mutool(ctx context.Context, dir, src string) ([][]byte, error) {
	pattern := filepath.Join(dir, "mu-%d.png")
	cmd := exec.CommandContext(ctx, "mutool", "draw", "-r", strconv.Itoa(r.dpi), "-o", pattern, src)
	if msg, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("mutool: %v: %s", err, strings.TrimSpace(string(msg)))
	}
	return collectPages(dir, "mu-")
}

// collectPages reads <prefix><n>.png files in numeric page order.
func collectPages(dir, prefix string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type pageFile struct {
		num  int
		name string
	}
	var files []pageFile
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".png") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".png"))
		if err != nil {
			continue
		}
		files = append(files, pageFile{num: num, name: name})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pages produced in %s", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	pages := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		pages = append(pages, data)
	}
	return pages, nil
}
