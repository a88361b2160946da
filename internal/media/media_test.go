package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestInferImageMime(t *testing.T) {
	cases := map[string]string{
		"photo.jpg":  "image/jpeg",
		"photo.JPEG": "image/jpeg",
		"icon.png":   "image/png",
		"anim.gif":   "image/gif",
		"pic.webp":   "image/webp",
		"doc.pdf":    "",
	}
	for path, want := range cases {
		if got := InferImageMime(path); got != want {
			t.Errorf("InferImageMime(%q) = %q, want %q", path, got, want)
		}
	}
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 0, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestLoadImagesSkipsUnsupportedAndOversized(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "a.png")
	if err := os.WriteFile(good, solidPNG(t, 4, 4), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	unsupported := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(unsupported, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	missing := filepath.Join(dir, "missing.jpg")

	got := LoadImages([]string{good, unsupported, missing})
	if len(got) != 1 {
		t.Fatalf("expected exactly one loaded image, got %d", len(got))
	}
	if got[0].MimeType != "image/png" {
		t.Fatalf("got mime type %q", got[0].MimeType)
	}
	if got[0].Data == "" {
		t.Fatalf("expected non-empty base64 data")
	}
}

func TestThumbnailPassesThroughSmallImages(t *testing.T) {
	data := solidPNG(t, 8, 8)
	out, err := Thumbnail(data, 512)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("expected images under maxWidth to pass through unchanged")
	}
}

func TestThumbnailResizesLargeImages(t *testing.T) {
	data := solidPNG(t, 1200, 600)
	out, err := Thumbnail(data, 300)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	resized, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode resized output: %v", err)
	}
	w, h := Dimensions(resized)
	if w > 300 || h > 300 {
		t.Fatalf("expected longest edge <= 300, got %dx%d", w, h)
	}
	if w != 300 && h != 300 {
		t.Fatalf("expected the longer edge to hit the bound exactly, got %dx%d", w, h)
	}
}

func TestDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	w, h := Dimensions(img)
	if w != 10 || h != 20 {
		t.Fatalf("got %dx%d", w, h)
	}
}
