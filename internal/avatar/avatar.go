// Package avatar はアバター画像の検査と正規化を提供します。
package avatar

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

// ErrNotImage は画像として解釈できないペイロードに対して返されます。
var ErrNotImage = errors.New("payload is not an image")

// 保存するアバターの一辺のピクセル数
const edge = 250

// Normalize はアップロードされたバイト列を検査し、
// 250x250のPNGへリサイズ・変換して返します。
// 画像以外のペイロードには ErrNotImage を返します。
func Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNotImage
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotImage
	}

	// 非正方形の画像は引き伸ばさず、中央の正方形を切り出してから縮小する
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
