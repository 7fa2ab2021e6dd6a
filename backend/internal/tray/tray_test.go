package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawIconPNG(t *testing.T) {
	data, err := DrawIconPNG(iconSize)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())
	assert.Equal(t, iconSize, img.Bounds().Dy())

	// the corner is rounded off, the centre of the top edge is filled
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Less(t, a, uint32(0x8000))
	r, g, b, _ := img.At(iconSize/2, 1).RGBA()
	assert.Equal(t, uint32(iconBackground.R)*0x101, r)
	assert.Equal(t, uint32(iconBackground.G)*0x101, g)
	assert.Equal(t, uint32(iconBackground.B)*0x101, b)
}

func TestWrapICO(t *testing.T) {
	payload := []byte("\x89PNG fake")
	ico := WrapICO(payload, 32)

	require.Len(t, ico, 22+len(payload))
	assert.Equal(t, []uint16{0, 1, 1}, []uint16{
		binary.LittleEndian.Uint16(ico[0:]),
		binary.LittleEndian.Uint16(ico[2:]),
		binary.LittleEndian.Uint16(ico[4:]),
	})
	assert.Equal(t, byte(32), ico[6])
	assert.Equal(t, byte(32), ico[7])
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(ico[14:]))
	assert.Equal(t, uint32(22), binary.LittleEndian.Uint32(ico[18:]))
	assert.Equal(t, payload, ico[22:])

	assert.Equal(t, byte(0), WrapICO(payload, 256)[6])
}

func TestGetIcon(t *testing.T) {
	icon, err := GetIcon()
	require.NoError(t, err)
	assert.NotEmpty(t, icon)
}

func TestBrowserCommand(t *testing.T) {
	const url = "http://localhost:8080/"
	assert.Equal(t, []string{"rundll32", "url.dll,FileProtocolHandler", url}, browserCommand("windows", url).Args)
	assert.Equal(t, []string{"open", url}, browserCommand("darwin", url).Args)
	assert.Equal(t, []string{"xdg-open", url}, browserCommand("linux", url).Args)
}

func TestSetModeBeforeReady(t *testing.T) {
	tr := New("", func() {}, nil)
	tr.SetMode("drive")
	assert.Equal(t, "Freight teleop (drive)", tooltip("drive"))
}
