package tray

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"runtime"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"
)

const iconSize = 32

var (
	iconBackground = color.RGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff}
	iconForeground = color.White
)

// DrawIconPNG renders the tray icon as a PNG of size x size pixels.
func DrawIconPNG(size int) ([]byte, error) {
	dc := gg.NewContext(size, size)
	s := float64(size)

	dc.SetColor(iconBackground)
	dc.DrawRoundedRectangle(0, 0, s, s, s/5)
	dc.Fill()

	// wheel base outline
	dc.SetColor(iconForeground)
	dc.SetLineWidth(s / 16)
	dc.DrawRectangle(s*0.2, s*0.2, s*0.6, s*0.6)
	dc.Stroke()

	dc.SetFontFace(basicfont.Face7x13)
	dc.DrawStringAnchored("T", s/2, s/2, 0.5, 0.35)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encode icon")
	}
	return buf.Bytes(), nil
}

// WrapICO embeds a PNG image in a single-entry ICO container.
func WrapICO(png []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(png)), 6 + 16})
	buf.Write(png)
	return buf.Bytes()
}

// GetIcon returns the tray icon in the format the platform tray expects.
func GetIcon() ([]byte, error) {
	png, err := DrawIconPNG(iconSize)
	if err != nil {
		return nil, err
	}
	if runtime.GOOS == "windows" {
		return WrapICO(png, iconSize), nil
	}
	return png, nil
}
