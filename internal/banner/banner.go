package banner

import (
	"ratewright/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
   _____       __                      _       __  __
  / ___/____ _/ /____ _      ______   (_)___ _/ /_/ /_
  \__ \/ __ \/ __/ _ \ | /| / / ___/  / / __ \/ __/ __ \
 ___/ / /_/ / /_/  __/ |/ |/ / /     / / /_/ / / / / / /
/____/\__,_/\__/\___/|__/|__/_/  __/ /\__,_/_/ /_/ /_/
                              /___/`

	return "\n" + style.Render(ascii) + "\n"
}
