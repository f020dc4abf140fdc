package theme

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daily-docket/internal/model"
)

// Palette is the set of colors a theme provides.
type Palette struct {
	Name   string
	Accent lipgloss.TerminalColor
	Text   lipgloss.TerminalColor
	Muted  lipgloss.TerminalColor
	Subtle lipgloss.TerminalColor
	Border lipgloss.TerminalColor
	High   lipgloss.TerminalColor
	Medium lipgloss.TerminalColor
	Low    lipgloss.TerminalColor
	Done   lipgloss.TerminalColor
	Error  lipgloss.TerminalColor
}

// Default is the theme used when none is configured.
const Default = "light"

// order is the cycle order for Next.
var order = []string{"light", "dark", "pastel", "nature", "ocean"}

var palettes = map[string]Palette{
	"light": {
		Name:   "light",
		Accent: lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"},
		Text:   lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"},
		Muted:  lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"},
		Subtle: lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"},
		Border: lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"},
		High:   lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"},
		Medium: lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"},
		Low:    lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"},
		Done:   lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"},
		Error:  lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"},
	},
	"dark": {
		Name:   "dark",
		Accent: lipgloss.Color("#8AB4F8"),
		Text:   lipgloss.Color("#E8EAED"),
		Muted:  lipgloss.Color("#9AA0A6"),
		Subtle: lipgloss.Color("#3C4043"),
		Border: lipgloss.Color("#5F6368"),
		High:   lipgloss.Color("#F28B82"),
		Medium: lipgloss.Color("#FDD663"),
		Low:    lipgloss.Color("#81C995"),
		Done:   lipgloss.Color("#81C995"),
		Error:  lipgloss.Color("#F28B82"),
	},
	"pastel": {
		Name:   "pastel",
		Accent: lipgloss.Color("#B39DDB"),
		Text:   lipgloss.AdaptiveColor{Dark: "#FCE4EC", Light: "#4A4458"},
		Muted:  lipgloss.Color("#A79BB8"),
		Subtle: lipgloss.AdaptiveColor{Dark: "#5E5470", Light: "#EDE7F6"},
		Border: lipgloss.Color("#D1C4E9"),
		High:   lipgloss.Color("#F48FB1"),
		Medium: lipgloss.Color("#FFE082"),
		Low:    lipgloss.Color("#A5D6A7"),
		Done:   lipgloss.Color("#80CBC4"),
		Error:  lipgloss.Color("#EF9A9A"),
	},
	"nature": {
		Name:   "nature",
		Accent: lipgloss.Color("#558B2F"),
		Text:   lipgloss.AdaptiveColor{Dark: "#F1F8E9", Light: "#33691E"},
		Muted:  lipgloss.Color("#8D9B6A"),
		Subtle: lipgloss.AdaptiveColor{Dark: "#3E4A2E", Light: "#DCEDC8"},
		Border: lipgloss.Color("#AED581"),
		High:   lipgloss.Color("#D84315"),
		Medium: lipgloss.Color("#F9A825"),
		Low:    lipgloss.Color("#7CB342"),
		Done:   lipgloss.Color("#2E7D32"),
		Error:  lipgloss.Color("#C62828"),
	},
	"ocean": {
		Name:   "ocean",
		Accent: lipgloss.Color("#0288D1"),
		Text:   lipgloss.AdaptiveColor{Dark: "#E1F5FE", Light: "#01579B"},
		Muted:  lipgloss.Color("#78909C"),
		Subtle: lipgloss.AdaptiveColor{Dark: "#263238", Light: "#B3E5FC"},
		Border: lipgloss.Color("#4FC3F7"),
		High:   lipgloss.Color("#FF7043"),
		Medium: lipgloss.Color("#FFCA28"),
		Low:    lipgloss.Color("#26A69A"),
		Done:   lipgloss.Color("#00897B"),
		Error:  lipgloss.Color("#E53935"),
	},
}

// Styles shared by every view. They are rebuilt by Use.
var (
	// HeaderStyle is used for the application title bar.
	HeaderStyle lipgloss.Style

	// StatusBarStyle is used for the bottom status bar.
	StatusBarStyle lipgloss.Style

	// PanelStyle wraps the pool, grid and stats panels.
	PanelStyle lipgloss.Style

	// FocusedPanelStyle marks the panel that receives keys.
	FocusedPanelStyle lipgloss.Style

	ListItemStyle     lipgloss.Style
	SelectedItemStyle lipgloss.Style
	DimmedStyle       lipgloss.Style
	HelpStyle         lipgloss.Style
	TitleStyle        lipgloss.Style
	SlotLabelStyle    lipgloss.Style
	GrabbedStyle      lipgloss.Style
	ErrorStyle        lipgloss.Style
	SuccessStyle      lipgloss.Style
)

var (
	mu      sync.RWMutex
	current Palette
)

func init() {
	_ = Use(Default)
}

// Names lists the available themes in cycle order.
func Names() []string {
	return append([]string(nil), order...)
}

// Known reports whether name is a theme.
func Known(name string) bool {
	_, ok := palettes[name]
	return ok
}

// Current returns the active palette.
func Current() Palette {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Next returns the theme after name in cycle order.
func Next(name string) string {
	for i, n := range order {
		if n == name {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// Use activates the named theme.
func Use(name string) error {
	p, ok := palettes[name]
	if !ok {
		names := Names()
		sort.Strings(names)
		return fmt.Errorf("unknown theme %q (available: %v)", name, names)
	}

	mu.Lock()
	defer mu.Unlock()
	current = p
	rebuild(p)
	return nil
}

func rebuild(p Palette) {
	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(p.Accent).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Subtle).
		Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border)

	FocusedPanelStyle = PanelStyle.
		BorderForeground(p.Accent)

	ListItemStyle = lipgloss.NewStyle().
		PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(p.Accent).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(p.Accent)

	DimmedStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Strikethrough(true)

	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	SlotLabelStyle = lipgloss.NewStyle().
		Width(9).
		Align(lipgloss.Right).
		Foreground(p.Muted)

	GrabbedStyle = lipgloss.NewStyle().
		Bold(true).
		Reverse(true)

	ErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Error)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(p.Done)
}

// PriorityStyle returns a color-coded style for a task priority.
func PriorityStyle(priority model.Priority) lipgloss.Style {
	p := Current()
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case model.PriorityHigh:
		return base.Foreground(p.High)
	case model.PriorityMedium:
		return base.Foreground(p.Medium)
	case model.PriorityLow:
		return base.Foreground(p.Low)
	default:
		return base.Foreground(p.Muted)
	}
}

// PriorityBadge renders a short colored marker for a priority.
func PriorityBadge(priority model.Priority) string {
	label := "M"
	switch priority {
	case model.PriorityHigh:
		label = "H"
	case model.PriorityLow:
		label = "L"
	}
	return PriorityStyle(priority).Render(label)
}
