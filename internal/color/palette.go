// Package color assigns display colours to tags.
package color

import "fmt"

// Pair is a tag colour: a background and a readable foreground.
type Pair struct {
	Key        string `json:"key"`
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// Palette is an ordered, fixed set of colour pairs.
type Palette []Pair

// Default is the tag palette: eight evenly spread hues.
var Default = newPalette([]struct {
	key string
	hue float64
}{
	{"red", 0},
	{"orange", 30},
	{"yellow", 55},
	{"green", 120},
	{"teal", 175},
	{"blue", 210},
	{"purple", 265},
	{"pink", 320},
})

func newPalette(hues []struct {
	key string
	hue float64
}) Palette {
	p := make(Palette, 0, len(hues))
	for _, h := range hues {
		p = append(p, Pair{
			Key:        h.key,
			Background: hex(hslToRGB(h.hue, 0.55, 0.85)),
			Foreground: hex(hslToRGB(h.hue, 0.6, 0.3)),
		})
	}
	return p
}

// Tag is the input to row assignment. Preferred is an optional palette key
// that overrides the name hash.
type Tag struct {
	Name      string
	Preferred string
}

// Hash is the deterministic string hash used to pick a tag's preferred slot.
func Hash(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	// -MinInt overflows back to itself.
	if h < 0 {
		h = 0
	}
	return h
}

// IndexOf returns the slot of the pair with the given key, or -1.
func (p Palette) IndexOf(key string) int {
	for i, pair := range p {
		if pair.Key == key {
			return i
		}
	}
	return -1
}

// Has reports whether key names a pair in the palette.
func (p Palette) Has(key string) bool {
	return p.IndexOf(key) >= 0
}

// preferred returns the slot a tag would take in an empty row.
func (p Palette) preferred(t Tag) int {
	if i := p.IndexOf(t.Preferred); i >= 0 {
		return i
	}
	return Hash(t.Name) % len(p)
}

// AssignRow gives each tag of one displayed row a colour. Tags are taken in
// order; each starts at its preferred slot and probes forward to the next
// slot not yet used in the row. No colour repeats while the row has at most
// len(p) tags. Past that every slot is taken and tags keep their preferred
// slot.
func (p Palette) AssignRow(tags []Tag) []Pair {
	if len(p) == 0 || len(tags) == 0 {
		return nil
	}

	out := make([]Pair, len(tags))
	used := make([]bool, len(p))
	taken := 0

	for i, t := range tags {
		slot := p.preferred(t)
		if taken < len(p) {
			for used[slot] {
				slot = (slot + 1) % len(p)
			}
			used[slot] = true
			taken++
		}
		out[i] = p[slot]
	}
	return out
}

// AssignNames is AssignRow over the default palette for plain tag names.
func AssignNames(names ...string) []Pair {
	tags := make([]Tag, len(names))
	for i, n := range names {
		tags[i] = Tag{Name: n}
	}
	return Default.AssignRow(tags)
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts HSL to RGB.
// h: hue (0-360), s: saturation (0-1), l: lightness (0-1).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var r1, g1, b1 float64

	if s == 0 {
		r1, g1, b1 = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q

		r1 = hueToRGB(p, q, h+1.0/3.0)
		g1 = hueToRGB(p, q, h)
		b1 = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(r1 * 255), uint8(g1 * 255), uint8(b1 * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
