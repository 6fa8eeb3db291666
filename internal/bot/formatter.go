package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

const deviceDivider = "---------------------------------------"

var thousand = decimal.NewFromInt(limitUnit)

// formatK renders an amount in thousands, e.g. 80500 as "80.5K".
func formatK(v int64) string {
	return decimal.NewFromInt(v).Div(thousand).String() + "K"
}

func formatSimLine(slot models.SlotSnapshot) string {
	phone := slot.Sim.Phone
	if phone == "" {
		phone = "N/A"
	}
	return fmt.Sprintf("Sim%d - %s | BK: %s | NG: %s",
		slot.SlotNo, phone, formatK(slot.Sim.BKLimit), formatK(slot.Sim.NGLimit))
}

// FormatStatus renders every device of the chat with its SIM limits.
func FormatStatus(snap models.ChatSnapshot) string {
	var sb strings.Builder
	for i, d := range snap.Devices {
		if i > 0 {
			sb.WriteString(deviceDivider + "\n")
		}
		fmt.Fprintf(&sb, "📟 DS-%d\n", d.Device.DeviceNo)
		for _, slot := range d.Slots {
			sb.WriteString(formatSimLine(slot) + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatSimLines renders the SIM lines of the given devices without headers.
func FormatSimLines(devices ...models.DeviceSnapshot) string {
	var lines []string
	for _, d := range devices {
		for _, slot := range d.Slots {
			lines = append(lines, formatSimLine(slot))
		}
	}
	return strings.Join(lines, "\n")
}
