// Package transform derives resized image variants from original content
// bytes. Transform keys use a compact "w=128,h=64" syntax; at least one
// dimension is required and the other is inferred from the aspect ratio.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// MaxDimension bounds requested output dimensions.
const MaxDimension = 8192

// Params are parsed transform parameters.
type Params struct {
	Width  int
	Height int
}

// ParseParams parses a transform key such as "w=128" or "w=128,h=64".
func ParseParams(key string) (Params, error) {
	var p Params
	key = strings.TrimSpace(key)
	if key == "" {
		return p, fmt.Errorf("transform parameters are required")
	}

	for _, part := range strings.Split(key, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return p, fmt.Errorf("invalid transform parameter %q", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 || n > MaxDimension {
			return p, fmt.Errorf("transform dimension %q must be in 1..%d", part, MaxDimension)
		}
		switch strings.TrimSpace(name) {
		case "w":
			p.Width = n
		case "h":
			p.Height = n
		default:
			return p, fmt.Errorf("unknown transform parameter %q", name)
		}
	}

	if p.Width == 0 && p.Height == 0 {
		return p, fmt.Errorf("transform requires w or h")
	}
	return p, nil
}

// Resize decodes original, scales it to the parsed dimensions, and
// re-encodes it in the source format. It satisfies the server's variant
// transform signature.
func Resize(ctx context.Context, transformKey string, original []byte) ([]byte, error) {
	params, err := ParseParams(transformKey)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := targetSize(params, bounds.Dx(), bounds.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// targetSize fills a missing dimension from the source aspect ratio.
func targetSize(p Params, srcW, srcH int) (int, int) {
	width, height := p.Width, p.Height
	if width == 0 {
		width = srcW * height / srcH
	}
	if height == 0 {
		height = srcH * width / srcW
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
