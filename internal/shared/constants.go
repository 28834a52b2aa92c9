package shared

// Flash kinds rendered by the layout banner.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Theme preferences stored under SessionKeyTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// NormalizeTheme maps unknown values to the light theme.
func NormalizeTheme(theme string) string {
	if theme == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
