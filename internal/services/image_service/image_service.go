package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ansel/internal/domain/models"
	"ansel/internal/lib/logger/sl"
	"ansel/internal/storage/filestorage"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/colornames"
)

// Views an image can be rendered in.
const (
	ViewThumb  = "thumb"
	ViewScreen = "screen"
	ViewMini   = "mini"
	ViewFull   = "full"
)

const (
	borderColor    = "#333"
	shadowPadding  = 5
	shadowDistance = 8
	shadowFade     = 2
	stackBase      = 100
	stackMax       = 3
	cornerRadius   = 8
	jpegQuality    = 85
)

var ErrUnknownView = errors.New("unknown image view")

type Size struct {
	Width  int
	Height int
}

// Sizes are the bounding boxes of the generated views.
type Sizes struct {
	Thumb  Size
	Screen Size
	Mini   Size
}

// ExifData is what an upload contributes to an image row.
type ExifData struct {
	OriginalDate time.Time
	Latitude     string
	Longitude    string
}

type ImageService struct {
	log   *slog.Logger
	files filestorage.FileStorage
	sizes Sizes
	// limits concurrent decoding
	sem chan struct{}
}

func NewImageService(log *slog.Logger, files filestorage.FileStorage, sizes Sizes, workers int) *ImageService {
	if workers < 1 {
		workers = 1
	}

	return &ImageService{
		log:   log,
		files: files,
		sizes: sizes,
		sem:   make(chan struct{}, workers),
	}
}

// Render returns the path, relative to the file storage, of img rendered in
// view and style. Rendered views are kept and reused.
func (s *ImageService) Render(ctx context.Context, img *models.Image, view string, style models.Style) (string, error) {
	const op = "image_service.Render"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("image_id", img.ID),
		slog.String("view", view),
		slog.String("style", style.Name),
	)

	if view == ViewFull {
		return filestorage.OriginalPath(img.ID, img.Filename), nil
	}

	rel := filestorage.ViewPath(img.ID, view, style.Name)
	if s.files.Exists(rel) {
		return rel, nil
	}

	src, err := s.load(ctx, img)
	if err != nil {
		log.Error("failed to load original", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var out image.Image
	switch view {
	case ViewThumb:
		out = s.thumb(src, img, style)
	case ViewScreen:
		out = imaging.Fit(src, s.sizes.Screen.Width, s.sizes.Screen.Height, imaging.Lanczos)
	case ViewMini:
		out = imaging.Fill(src, s.sizes.Mini.Width, s.sizes.Mini.Height, imaging.Center, imaging.Lanczos)
	default:
		return "", fmt.Errorf("%s: %w: %q", op, ErrUnknownView, view)
	}

	if err := s.store(ctx, rel, out, style); err != nil {
		log.Error("failed to store view", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("view rendered")

	return rel, nil
}

// RenderStack composes the key image of a gallery from up to three of its
// images and returns its storage path.
func (s *ImageService) RenderStack(ctx context.Context, galleryID int64, images []*models.Image, style models.Style) (string, error) {
	const op = "image_service.RenderStack"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("gallery_id", galleryID),
		slog.String("style", style.Name),
	)

	rel := StackPath(galleryID, style.Name)
	if s.files.Exists(rel) {
		return rel, nil
	}

	if len(images) > stackMax {
		images = images[:stackMax]
	}

	srcs := make([]image.Image, 0, len(images))
	for _, img := range images {
		src, err := s.load(ctx, img)
		if err != nil {
			log.Warn("skipping stack image", slog.Int64("image_id", img.ID), sl.Err(err))
			continue
		}
		srcs = append(srcs, src)
	}

	out := s.roundedStack(srcs, style)
	if err := s.store(ctx, rel, out, style); err != nil {
		log.Error("failed to store stack", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return rel, nil
}

// StackPath is where the composed key image of a gallery lives.
func StackPath(galleryID int64, style string) string {
	return "stacks/" + strconv.FormatInt(galleryID, 10) + "_" + style + ".jpg"
}

// ReadExif extracts the capture date and GPS position of a JPEG.
func ReadExif(r io.Reader) (ExifData, error) {
	const op = "image_service.ReadExif"

	x, err := exif.Decode(r)
	if err != nil {
		return ExifData{}, fmt.Errorf("%s: %w", op, err)
	}

	var data ExifData
	if t, err := x.DateTime(); err == nil {
		data.OriginalDate = t
	}
	if lat, long, err := x.LatLong(); err == nil {
		data.Latitude = strconv.FormatFloat(lat, 'f', 6, 64)
		data.Longitude = strconv.FormatFloat(long, 'f', 6, 64)
	}

	return data, nil
}

func (s *ImageService) load(ctx context.Context, img *models.Image) (image.Image, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	rc, err := s.files.Open(ctx, filestorage.OriginalPath(img.ID, img.Filename))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return imaging.Decode(rc, imaging.AutoOrientation(true))
}

func (s *ImageService) store(ctx context.Context, rel string, img image.Image, style models.Style) error {
	// JPEG has no alpha
	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), opaque(parseColor(style.Background)))
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return err
	}

	_, err := s.files.Write(ctx, rel, &buf)
	return err
}

func (s *ImageService) thumb(src image.Image, img *models.Image, style models.Style) image.Image {
	switch style.Thumbstyle {
	case models.ThumbShadowSharp:
		return s.shadowSharp(src, img.IsStack(), style)
	case models.ThumbRoundedStack:
		return s.roundedStack([]image.Image{src}, style)
	default:
		return imaging.Fit(src, s.sizes.Thumb.Width, s.sizes.Thumb.Height, imaging.Lanczos)
	}
}

func (s *ImageService) shadowSharp(src image.Image, stack bool, style models.Style) image.Image {
	b := src.Bounds()
	w := min(s.sizes.Thumb.Width, b.Dx())
	h := min(s.sizes.Thumb.Height, b.Dy())
	out := imaging.Fit(src, w, h, imaging.Lanczos)
	if stack {
		return out
	}

	bordered := imaging.New(out.Bounds().Dx()+2, out.Bounds().Dy()+2, parseColor(borderColor))
	bordered = imaging.Paste(bordered, out, image.Pt(1, 1))

	return dropShadow(bordered, parseColor(style.Background))
}

func dropShadow(src image.Image, bg color.Color) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	cw := w + 2*shadowPadding + shadowDistance
	ch := h + 2*shadowPadding + shadowDistance

	shadow := imaging.New(cw, ch, color.Transparent)
	shadow = imaging.Paste(shadow, imaging.New(w, h, color.NRGBA{A: 160}),
		image.Pt(shadowPadding+shadowDistance, shadowPadding+shadowDistance))
	shadow = imaging.Blur(shadow, shadowFade)

	canvas := imaging.New(cw, ch, bg)
	canvas = imaging.Overlay(canvas, shadow, image.Pt(0, 0), 1.0)

	return imaging.Paste(canvas, src, image.Pt(shadowPadding, shadowPadding))
}

func (s *ImageService) roundedStack(srcs []image.Image, style models.Style) image.Image {
	base := imaging.New(stackBase, stackBase, parseColor(style.Background))

	n := len(srcs)
	if n > 0 {
		// each layer is offset down and right from the one behind it
		step := 6
		side := stackBase - step*(n-1)
		for i := n - 1; i >= 0; i-- {
			layer := roundCorners(imaging.Fill(srcs[i], side, side, imaging.Center, imaging.Lanczos), cornerRadius)
			off := step * (n - 1 - i)
			base = imaging.Overlay(base, layer, image.Pt(off, off), 1.0)
		}
	}

	return imaging.Resize(base, s.sizes.Thumb.Width, s.sizes.Thumb.Height, imaging.Lanczos)
}

func roundCorners(img *image.NRGBA, r int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if r*2 > w || r*2 > h {
		return img
	}

	corners := [4][2]int{{r, r}, {w - r - 1, r}, {r, h - r - 1}, {w - r - 1, h - r - 1}}
	for _, c := range corners {
		for y := 0; y < r; y++ {
			for x := 0; x < r; x++ {
				px, py := x, y
				if c[0] > r {
					px = w - 1 - x
				}
				if c[1] > r {
					py = h - 1 - y
				}
				dx, dy := px-c[0], py-c[1]
				if dx*dx+dy*dy > r*r {
					img.SetNRGBA(px, py, color.NRGBA{})
				}
			}
		}
	}

	return img
}

// parseColor understands "none", CSS color names and #rgb / #rrggbb.
func parseColor(s string) color.Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" || s == "transparent" {
		return color.Transparent
	}

	if c, ok := colornames.Map[s]; ok {
		return c
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.Transparent
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Transparent
	}

	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func opaque(c color.Color) color.Color {
	if _, _, _, a := c.RGBA(); a == 0 {
		return color.White
	}

	return c
}
