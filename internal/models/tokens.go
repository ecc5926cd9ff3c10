package models

// ColorToken names one of the fixed category colors
type ColorToken string

const (
	ColorRed    ColorToken = "red"
	ColorBlue   ColorToken = "blue"
	ColorGreen  ColorToken = "green"
	ColorYellow ColorToken = "yellow"
	ColorPurple ColorToken = "purple"
	ColorOrange ColorToken = "orange"
	ColorPink   ColorToken = "pink"
	ColorTeal   ColorToken = "teal"
	ColorIndigo ColorToken = "indigo"
	ColorCyan   ColorToken = "cyan"
	ColorGray   ColorToken = "gray"
)

// ColorStyle holds the rendered colors for a token
type ColorStyle struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
	Border     string `json:"border"`
}

var colorStyles = map[ColorToken]ColorStyle{
	ColorRed:    {Background: "#fef2f2", Foreground: "#991b1b", Border: "#fca5a5"},
	ColorBlue:   {Background: "#eff6ff", Foreground: "#1e40af", Border: "#93c5fd"},
	ColorGreen:  {Background: "#f0fdf4", Foreground: "#166534", Border: "#86efac"},
	ColorYellow: {Background: "#fefce8", Foreground: "#a16207", Border: "#fde047"},
	ColorPurple: {Background: "#faf5ff", Foreground: "#7c3aed", Border: "#c4b5fd"},
	ColorOrange: {Background: "#fff7ed", Foreground: "#c2410c", Border: "#fdba74"},
	ColorPink:   {Background: "#fdf2f8", Foreground: "#be185d", Border: "#f9a8d4"},
	ColorTeal:   {Background: "#f0fdfa", Foreground: "#134e4a", Border: "#5eead4"},
	ColorIndigo: {Background: "#eef2ff", Foreground: "#3730a3", Border: "#a5b4fc"},
	ColorCyan:   {Background: "#ecfeff", Foreground: "#0e7490", Border: "#67e8f9"},
	ColorGray:   {Background: "#f9fafb", Foreground: "#374151", Border: "#d1d5db"},
}

// Valid reports whether the token is one of the known colors
func (c ColorToken) Valid() bool {
	_, ok := colorStyles[c]
	return ok
}

// Style returns the rendered colors for the token, falling back to gray
func (c ColorToken) Style() ColorStyle {
	if s, ok := colorStyles[c]; ok {
		return s
	}
	return colorStyles[ColorGray]
}

// ParseColorToken converts a raw string into a ColorToken.
// Unknown values map to gray.
func ParseColorToken(s string) ColorToken {
	c := ColorToken(s)
	if c.Valid() {
		return c
	}
	return ColorGray
}

// IconToken names one of the fixed solution icons
type IconToken string

const (
	IconServer    IconToken = "server"
	IconCpu       IconToken = "cpu"
	IconDatabase  IconToken = "database"
	IconCloud     IconToken = "cloud"
	IconZap       IconToken = "zap"
	IconThermo    IconToken = "thermometer"
	IconDroplet   IconToken = "droplet"
	IconWind      IconToken = "wind"
	IconLeaf      IconToken = "leaf"
	IconBuilding  IconToken = "building"
	IconFactory   IconToken = "factory"
	IconSettings  IconToken = "settings"
	IconLightbulb IconToken = "lightbulb"
)

var iconNames = map[IconToken]string{
	IconServer:    "Server",
	IconCpu:       "Cpu",
	IconDatabase:  "Database",
	IconCloud:     "Cloud",
	IconZap:       "Zap",
	IconThermo:    "Thermometer",
	IconDroplet:   "Droplet",
	IconWind:      "Wind",
	IconLeaf:      "Leaf",
	IconBuilding:  "Building",
	IconFactory:   "Factory",
	IconSettings:  "Settings",
	IconLightbulb: "Lightbulb",
}

// Valid reports whether the icon token is known
func (i IconToken) Valid() bool {
	_, ok := iconNames[i]
	return ok
}

// ComponentName returns the presentation-layer component name for the icon
func (i IconToken) ComponentName() string {
	if name, ok := iconNames[i]; ok {
		return name
	}
	return iconNames[IconSettings]
}

// ParseIconToken accepts either the token or its component name.
// Unknown values map to the settings icon.
func ParseIconToken(s string) IconToken {
	if IconToken(s).Valid() {
		return IconToken(s)
	}
	for token, name := range iconNames {
		if name == s {
			return token
		}
	}
	return IconSettings
}
