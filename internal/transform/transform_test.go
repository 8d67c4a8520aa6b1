package transform

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		key     string
		want    Params
		wantErr bool
	}{
		{key: "w=128", want: Params{Width: 128}},
		{key: "h=64", want: Params{Height: 64}},
		{key: "w=128,h=64", want: Params{Width: 128, Height: 64}},
		{key: " w=10 , h=20 ", want: Params{Width: 10, Height: 20}},
		{key: "", wantErr: true},
		{key: "w=0", wantErr: true},
		{key: "w=-5", wantErr: true},
		{key: "w=99999", wantErr: true},
		{key: "q=80", wantErr: true},
		{key: "128", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseParams(tc.key)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected rejection for %q, got %+v", tc.key, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: expected %+v, got %+v", tc.key, tc.want, got)
		}
	}
}

func TestResize_PreservesAspect(t *testing.T) {
	original := testPNG(t, 64, 32)

	derived, err := Resize(context.Background(), "w=16", original)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(derived))
	if err != nil {
		t.Fatalf("decode derived: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png output, got %s", format)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("expected 16x8, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResize_ExplicitDimensions(t *testing.T) {
	original := testPNG(t, 40, 40)

	derived, err := Resize(context.Background(), "w=10,h=20", original)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(derived))
	if err != nil {
		t.Fatalf("decode derived: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 20 {
		t.Fatalf("expected 10x20, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResize_RejectsBadInput(t *testing.T) {
	if _, err := Resize(context.Background(), "w=16", []byte("not an image")); err == nil {
		t.Fatal("expected decode failure")
	}
	if _, err := Resize(context.Background(), "", testPNG(t, 8, 8)); err == nil {
		t.Fatal("expected empty key rejection")
	}
}
