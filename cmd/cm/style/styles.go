package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var ColorYellow = lipgloss.Color("#e9a015")
var ColorGreen = lipgloss.Color("#00aa00")
var ColorDarkRed = lipgloss.Color("#aa0000")
var ColorGray = lipgloss.Color("#888888")
var ColorBlack = lipgloss.Color("#111111")

var H1Style = lipgloss.NewStyle().Background(ColorYellow).Foreground(ColorBlack).Bold(true)
var H2Style = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
var BlockStyle = lipgloss.NewStyle().MarginLeft(4)
var SubtitleStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
var SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
var ErrorStyle = lipgloss.NewStyle().Foreground(ColorDarkRed).Bold(true)
var PendingStyle = lipgloss.NewStyle().Foreground(ColorGray).Bold(true)
var IDStyle = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)

func Title(in string) string {
	return fmt.Sprintf("\n%s\n", H1Style.Render(" "+in+" "))
}

func InlineBlockTitle(in string) string {
	return fmt.Sprintf("\n%s ", H2Style.Render("→ "+in+":"))
}

func Block(in string) string {
	return BlockStyle.Render(strings.Trim(in, "\n"))
}

func Item(in string) string {
	return fmt.Sprintf(" • %s\n", in)
}

func Subtitle(in string) string {
	return fmt.Sprintf("\n%s\n", SubtitleStyle.Render(in))
}

func RenderSuccess(in string) string {
	return SuccessStyle.Render(in)
}

func RenderError(in string) string {
	return ErrorStyle.Render(in)
}

func RenderPending(in string) string {
	return PendingStyle.Render(in)
}

func RenderID(in string) string {
	return IDStyle.Render(in)
}

// PrettyPrint prints the output followed by a newline.
func PrettyPrint(in string) {
	fmt.Println(strings.TrimRight(in, "\n"))
}
