package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestParseDataURLRoundTrip(t *testing.T) {
	data := encodePNG(t, 4, 3)
	dataURL := EncodeDataURL("image/png", data)

	blob, err := ParseDataURL(dataURL)
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if blob.MimeType != "image/png" {
		t.Errorf("mime type = %q, want image/png", blob.MimeType)
	}
	if !bytes.Equal(blob.Data, data) {
		t.Error("payload does not round-trip")
	}
}

func TestParseDataURLRejectsMalformed(t *testing.T) {
	for _, input := range []string{
		"https://example.com/cat.png",
		"data:image/png",
		"data:image/png;base64,!!!not-base64!!!",
		"data:image/png;utf8,hello",
	} {
		if _, err := ParseDataURL(input); err == nil {
			t.Errorf("ParseDataURL(%q) succeeded, want error", input)
		}
	}
}

func TestMeasure(t *testing.T) {
	data := encodePNG(t, 17, 9)
	w, h, err := Measure(data)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if w != 17 || h != 9 {
		t.Errorf("dimensions = %dx%d, want 17x9", w, h)
	}
}

func TestMeasureRejectsGarbage(t *testing.T) {
	if _, _, err := Measure([]byte("not an image")); err == nil {
		t.Fatal("Measure on garbage succeeded, want error")
	}
}

func TestDownscaleFitsBounds(t *testing.T) {
	data := encodePNG(t, 100, 50)

	scaled, mimeType, err := Downscale(data, "image/png", 40, 40)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("mime type = %q, want image/png", mimeType)
	}
	w, h, err := Measure(scaled)
	if err != nil {
		t.Fatalf("Measure scaled: %v", err)
	}
	if w != 40 || h != 20 {
		t.Errorf("scaled dimensions = %dx%d, want 40x20", w, h)
	}
}

func TestDownscaleKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 10, 10)
	scaled, mimeType, err := Downscale(data, "image/jpeg", 64, 64)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	if !bytes.Equal(scaled, data) || mimeType != "image/jpeg" {
		t.Error("in-bounds image should be returned unchanged")
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpeg",
		"image/webp": "webp",
		"":           "png",
		"image":      "png",
	}
	for mimeType, want := range cases {
		if got := ExtensionFor(mimeType); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", mimeType, got, want)
		}
	}
	if !strings.HasPrefix(EncodeDataURL("image/png", nil), "data:image/png;base64,") {
		t.Error("EncodeDataURL prefix mismatch")
	}
}
