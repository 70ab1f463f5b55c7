package models

// Thumbnail generators selectable by a style.
const (
	ThumbPlain        = "Thumb"
	ThumbShadowSharp  = "ShadowSharpThumb"
	ThumbRoundedStack = "RoundedStack"
)

// Style is a named presentation definition for gallery thumbnails.
type Style struct {
	Name       string `yaml:"name" json:"name"`
	Title      string `yaml:"title" json:"title"`
	Thumbstyle string `yaml:"thumbstyle" json:"thumbstyle"`
	Background string `yaml:"background" json:"background"`
}

// DefaultStyle is used when a gallery names no known style.
var DefaultStyle = Style{
	Name:       DefaultStyleName,
	Title:      "Default",
	Thumbstyle: ThumbPlain,
	Background: "none",
}
