package bot

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

// limitUnit is the multiplier of the K suffix in device setups.
const limitUnit = 1000

var (
	deviceHeaderRe = regexp.MustCompile(`^DS-(\d+)\s*$`)
	simLineRe      = regexp.MustCompile(`^Sim([1-4]) - (01\d{9}) BK (\d+)K \| NG (\d+)K$`)
	adjustmentRe   = regexp.MustCompile(`(?i)^([+-]\d+)\s+ds-(\d+)\s+sim([1-4])\s+(bk|ng)$`)
	deviceRefRe    = regexp.MustCompile(`(?i)^ds-(\d+)$`)
)

// ParsedAdjustment is a balance change typed by an operator, e.g.
// "+30000 ds-1 sim1 bk".
type ParsedAdjustment struct {
	Amount   int64
	DeviceNo int
	SlotNo   int
	Wallet   models.WalletType
}

// ParseDeviceSetup parses a device block:
//
//	DS-1
//
//	Sim1 - 01000000001 BK 80K | NG 80K
//	Sim2 - 01000000002 BK 80K | NG 0K
//
// Limits are given in thousands. The block must hold 1 to 4 SIM lines with
// distinct slot numbers; anything else is rejected as a whole.
func ParseDeviceSetup(text string) (models.DeviceSetup, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return models.DeviceSetup{}, false
	}

	m := deviceHeaderRe.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if m == nil {
		return models.DeviceSetup{}, false
	}
	deviceNo, ok := parseDeviceNo(m[1])
	if !ok {
		return models.DeviceSetup{}, false
	}

	if strings.TrimSpace(lines[1]) != "" {
		return models.DeviceSetup{}, false
	}

	simLines := lines[2:]
	if len(simLines) > models.MaxSlotNo {
		return models.DeviceSetup{}, false
	}

	setup := models.DeviceSetup{DeviceNo: deviceNo}
	seen := make(map[int]bool, len(simLines))
	for _, line := range simLines {
		slot, ok := parseSimLine(strings.TrimSpace(line))
		if !ok || seen[slot.SlotNo] {
			return models.DeviceSetup{}, false
		}
		seen[slot.SlotNo] = true
		setup.Slots = append(setup.Slots, slot)
	}

	return setup, true
}

func parseSimLine(line string) (models.SlotSetup, bool) {
	m := simLineRe.FindStringSubmatch(line)
	if m == nil {
		return models.SlotSetup{}, false
	}

	slotNo, _ := strconv.Atoi(m[1])
	bk, ok := parseThousands(m[3])
	if !ok {
		return models.SlotSetup{}, false
	}
	ng, ok := parseThousands(m[4])
	if !ok {
		return models.SlotSetup{}, false
	}

	return models.SlotSetup{SlotNo: slotNo, Phone: m[2], BKLimit: bk, NGLimit: ng}, true
}

func parseThousands(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v > math.MaxInt64/limitUnit {
		return 0, false
	}
	return v * limitUnit, true
}

// ParseAdjustment parses "<+|-><amount> ds-<n> sim<1-4> <bk|ng>",
// case-insensitively. The sign is mandatory.
func ParseAdjustment(text string) (ParsedAdjustment, bool) {
	m := adjustmentRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ParsedAdjustment{}, false
	}

	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ParsedAdjustment{}, false
	}
	deviceNo, ok := parseDeviceNo(m[2])
	if !ok {
		return ParsedAdjustment{}, false
	}
	slotNo, _ := strconv.Atoi(m[3])
	wallet, _ := models.ParseWalletType(m[4])

	return ParsedAdjustment{
		Amount:   amount,
		DeviceNo: deviceNo,
		SlotNo:   slotNo,
		Wallet:   wallet,
	}, true
}

// ParseDeviceRef parses "ds-<n>".
func ParseDeviceRef(text string) (int, bool) {
	m := deviceRefRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	return parseDeviceNo(m[1])
}

// parseDeviceNo accepts device numbers from 1 to models.MaxDeviceNo.
func parseDeviceNo(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > models.MaxDeviceNo {
		return 0, false
	}
	return n, true
}
