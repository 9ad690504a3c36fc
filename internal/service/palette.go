package service

// DefaultPalette is the cursor color palette. Ten entries keeps colors
// visually distinct at typical room sizes (5-10 concurrent editors); the
// minimum for a usable deployment is 8.
var DefaultPalette = []string{
	"#FF6B6B", // coral red
	"#4ECDC4", // teal
	"#45B7D1", // sky blue
	"#FFA07A", // light salmon
	"#98D8C8", // mint
	"#F7DC6F", // yellow
	"#BB8FCE", // lavender
	"#85C1E9", // light blue
	"#F1948A", // pink
	"#52BE80", // green
}

// colorAllocator hands out cursor colors for one room. Each room owns its own
// allocator so rooms never contend on a shared rotating index.
type colorAllocator struct {
	palette []string
	next    int
}

func newColorAllocator(palette []string) *colorAllocator {
	return &colorAllocator{palette: palette}
}

// assign returns the first color not currently in use, scanning forward from
// the rotating index so successive joiners cycle through the palette instead
// of all landing on the lowest free slot. When every color is taken a
// duplicate is handed out and exhausted is true; the caller surfaces that to
// operators since it means the palette is undersized for the room.
func (a *colorAllocator) assign(inUse map[string]bool) (string, bool) {
	n := len(a.palette)
	for i := 0; i < n; i++ {
		color := a.palette[(a.next+i)%n]
		if !inUse[color] {
			a.next = (a.next + i + 1) % n
			return color, false
		}
	}

	color := a.palette[a.next%n]
	a.next = (a.next + 1) % n
	return color, true
}

// holds reports whether color belongs to the palette. Used to decide if a
// reconnecting user may keep its previous color.
func (a *colorAllocator) holds(color string) bool {
	for _, c := range a.palette {
		if c == color {
			return true
		}
	}
	return false
}
