package display

// Pixel is one LED's target intensity. There is no alpha channel and no gamma.
type Pixel struct {
	R, G, B uint8
}

// Off is the blank pixel.
var Off = Pixel{}

// PixelOf builds a Pixel from unchecked integer channels, clamping each into
// 0..255. This is the only bound applied to command values.
func PixelOf(r, g, b int) Pixel {
	return Pixel{R: clamp8(r), G: clamp8(g), B: clamp8(b)}
}

func (p Pixel) IsOff() bool { return p == Off }

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Serialize packs pixels into the R,G,B byte stream the LED drivers expect.
func Serialize(px []Pixel, dst []byte) []byte {
	if cap(dst) < len(px)*3 {
		dst = make([]byte, len(px)*3)
	}
	dst = dst[:len(px)*3]
	for i, p := range px {
		dst[i*3+0] = p.R
		dst[i*3+1] = p.G
		dst[i*3+2] = p.B
	}
	return dst
}
