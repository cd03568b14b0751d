package leveling

// Color is the display colour band of a level.
type Color string

const (
	ColorGray   Color = "gray"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorBronze Color = "bronze"
	ColorSilver Color = "silver"
	ColorGold   Color = "gold"
)

var colorHex = map[Color]string{
	ColorGray:   "#9E9E9E",
	ColorBlue:   "#2196F3",
	ColorGreen:  "#4CAF50",
	ColorBronze: "#CD7F32",
	ColorSilver: "#C0C0C0",
	ColorGold:   "#FFD700",
}

// Hex returns the RGB value used to draw the band, gray for unknown colours.
func (c Color) Hex() string {
	if h, ok := colorHex[c]; ok {
		return h
	}
	return colorHex[ColorGray]
}

// Band is the title and colour shown for a level.
type Band struct {
	Title string `json:"title"`
	Color Color  `json:"color"`
}

// Title returns the title of the highest threshold at or below level.
// Levels below every threshold get the first title.
func (s *System) Title(level int) string {
	title := s.cfg.Titles[0].Title
	for _, t := range s.cfg.Titles {
		if level >= t.Level {
			title = t.Title
		}
	}
	return title
}

// Color returns the colour of the highest threshold at or below level.
func (s *System) Color(level int) Color {
	color := s.cfg.Colors[0].Color
	for _, c := range s.cfg.Colors {
		if level >= c.Level {
			color = c.Color
		}
	}
	return color
}

// Band pairs the title and colour for level.
func (s *System) Band(level int) Band {
	return Band{Title: s.Title(level), Color: s.Color(level)}
}
