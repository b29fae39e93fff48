package tui

import (
	"fmt"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/muesli/termenv"
)

// FormatLockState renders a lock state with its holder, coloured for profile p.
func FormatLockState(p termenv.Profile, state domain.LockState, holder domain.LockInfo) string {
	var color string
	text := state.String()
	switch state {
	case domain.Unlocked:
		color = "#9ca3af"
	case domain.LockedByMe:
		color = "#22c55e"
		text = fmt.Sprintf("%s (since %s %s)", text, holder.Date, holder.Time)
	case domain.LockedByOther:
		color = "#ef4444"
		who := holder.User
		if who == "" {
			who = "unknown holder"
		}
		if holder.Station != "" {
			who += "@" + holder.Station
		}
		text = fmt.Sprintf("%s: %s", text, who)
		if holder.Date != "" {
			text += fmt.Sprintf(" since %s %s", holder.Date, holder.Time)
		}
	}
	return termenv.String(text).Foreground(p.Color(color)).String()
}
