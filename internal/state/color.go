package state

import (
	"image/color"
	"strconv"
	"strings"
)

// DefaultStroke is used for segments that carry no color of their own.
var DefaultStroke = color.NRGBA{R: 50, G: 50, B: 50, A: 255}

var namedColors = map[string]color.NRGBA{
	"black": {A: 255},
	"white": {R: 255, G: 255, B: 255, A: 255},
	"red":   {R: 255, A: 255},
	"green": {G: 255, A: 255},
	"blue":  {B: 255, A: 255},
}

// ParseColor understands "#rgb", "#rrggbb" and a handful of names.
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

// StrokeColor resolves a segment color, falling back to DefaultStroke.
func StrokeColor(s string) color.NRGBA {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return DefaultStroke
}

// HexColor formats c as "#rrggbb".
func HexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	const hexdigits = "0123456789abcdef"
	out := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint32{r >> 8, g >> 8, b >> 8} {
		out[1+2*i] = hexdigits[v>>4]
		out[2+2*i] = hexdigits[v&0xf]
	}
	return string(out)
}
