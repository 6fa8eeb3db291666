package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

const fullSetup = `DS-1

Sim1 - 01000000001 BK 80K | NG 80K
Sim2 - 01000000002 BK 80K | NG 0K
Sim3 - 01000000003 BK 80K | NG 80K
Sim4 - 01000000004 BK 80K | NG 50K`

func TestParseDeviceSetup(t *testing.T) {
	t.Parallel()

	t.Run("parses a full device", func(t *testing.T) {
		t.Parallel()
		setup, ok := ParseDeviceSetup(fullSetup)
		require.True(t, ok)
		require.Equal(t, 1, setup.DeviceNo)
		require.Len(t, setup.Slots, 4)
		require.Equal(t, models.SlotSetup{SlotNo: 1, Phone: "01000000001", BKLimit: 80000, NGLimit: 80000}, setup.Slots[0])
		require.Equal(t, models.SlotSetup{SlotNo: 2, Phone: "01000000002", BKLimit: 80000, NGLimit: 0}, setup.Slots[1])
		require.Equal(t, int64(50000), setup.Slots[3].NGLimit)
	})

	t.Run("accepts fewer SIMs and any slot order", func(t *testing.T) {
		t.Parallel()
		setup, ok := ParseDeviceSetup("DS-12\n\nSim3 - 01700000003 BK 5K | NG 7K\nSim1 - 01700000001 BK 1K | NG 2K")
		require.True(t, ok)
		require.Equal(t, 12, setup.DeviceNo)
		require.Len(t, setup.Slots, 2)
		require.Equal(t, 3, setup.Slots[0].SlotNo)
		require.Equal(t, int64(5000), setup.Slots[0].BKLimit)
		require.Equal(t, int64(7000), setup.Slots[0].NGLimit)
	})

	t.Run("accepts the largest device number", func(t *testing.T) {
		t.Parallel()
		setup, ok := ParseDeviceSetup("DS-2147483647\n\nSim1 - 01000000001 BK 80K | NG 80K")
		require.True(t, ok)
		require.Equal(t, models.MaxDeviceNo, setup.DeviceNo)
	})

	t.Run("accepts CRLF line endings", func(t *testing.T) {
		t.Parallel()
		setup, ok := ParseDeviceSetup("DS-2\r\n\r\nSim1 - 01000000001 BK 80K | NG 80K\r\n")
		require.True(t, ok)
		require.Equal(t, 2, setup.DeviceNo)
		require.Len(t, setup.Slots, 1)
	})

	rejected := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "header only", text: "DS-1"},
		{name: "lower-case header", text: "ds-1\n\nSim1 - 01000000001 BK 80K | NG 80K"},
		{name: "device zero", text: "DS-0\n\nSim1 - 01000000001 BK 80K | NG 80K"},
		{name: "device beyond int4", text: "DS-3000000000\n\nSim1 - 01000000001 BK 80K | NG 80K"},
		{name: "device 2147483648", text: "DS-2147483648\n\nSim1 - 01000000001 BK 80K | NG 80K"},
		{name: "missing blank line", text: "DS-1\nSim1 - 01000000001 BK 80K | NG 80K\nSim2 - 01000000002 BK 80K | NG 0K"},
		{name: "slot five", text: "DS-1\n\nSim5 - 01000000001 BK 80K | NG 80K"},
		{name: "short phone", text: "DS-1\n\nSim1 - 0100000001 BK 80K | NG 80K"},
		{name: "phone without 01 prefix", text: "DS-1\n\nSim1 - 02000000001 BK 80K | NG 80K"},
		{name: "missing K suffix", text: "DS-1\n\nSim1 - 01000000001 BK 80 | NG 80K"},
		{name: "decimal limit", text: "DS-1\n\nSim1 - 01000000001 BK 8.5K | NG 80K"},
		{name: "duplicate slot", text: "DS-1\n\nSim1 - 01000000001 BK 80K | NG 80K\nSim1 - 01000000002 BK 80K | NG 80K"},
		{
			name: "five SIM lines",
			text: fullSetup + "\nSim1 - 01000000005 BK 80K | NG 80K",
		},
		{name: "trailing garbage line", text: "DS-1\n\nSim1 - 01000000001 BK 80K | NG 80K\nhello"},
		{name: "overflowing limit", text: "DS-1\n\nSim1 - 01000000001 BK 99999999999999999K | NG 80K"},
	}
	for _, tt := range rejected {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := ParseDeviceSetup(tt.text)
			require.False(t, ok)
		})
	}
}

func TestParseAdjustment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   ParsedAdjustment
		wantOK bool
	}{
		{
			name:   "credit",
			text:   "+30000 ds-1 sim1 bk",
			want:   ParsedAdjustment{Amount: 30000, DeviceNo: 1, SlotNo: 1, Wallet: models.WalletBK},
			wantOK: true,
		},
		{
			name:   "debit",
			text:   "-4000 ds-2 sim4 ng",
			want:   ParsedAdjustment{Amount: -4000, DeviceNo: 2, SlotNo: 4, Wallet: models.WalletNG},
			wantOK: true,
		},
		{
			name:   "upper case",
			text:   "+500 DS-3 SIM2 BK",
			want:   ParsedAdjustment{Amount: 500, DeviceNo: 3, SlotNo: 2, Wallet: models.WalletBK},
			wantOK: true,
		},
		{
			name:   "extra inner spaces and padding",
			text:   "  +10   ds-1  sim3   ng  ",
			want:   ParsedAdjustment{Amount: 10, DeviceNo: 1, SlotNo: 3, Wallet: models.WalletNG},
			wantOK: true,
		},
		{name: "unsigned amount", text: "30000 ds-1 sim1 bk"},
		{name: "unknown wallet", text: "+30000 ds-1 sim1 rk"},
		{name: "slot out of range", text: "+30000 ds-1 sim5 bk"},
		{name: "missing wallet", text: "+30000 ds-1 sim1"},
		{name: "decimal amount", text: "+300.5 ds-1 sim1 bk"},
		{name: "trailing words", text: "+30000 ds-1 sim1 bk please"},
		{name: "plain chat", text: "hello there"},
		{name: "amount overflow", text: "+99999999999999999999 ds-1 sim1 bk"},
		{name: "device zero", text: "+1 ds-0 sim1 bk"},
		{name: "device beyond int4", text: "+1 ds-3000000000 sim1 bk"},
		{
			name:   "largest device",
			text:   "+1 ds-2147483647 sim1 bk",
			want:   ParsedAdjustment{Amount: 1, DeviceNo: models.MaxDeviceNo, SlotNo: 1, Wallet: models.WalletBK},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseAdjustment(tt.text)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeviceRef(t *testing.T) {
	t.Parallel()

	n, ok := ParseDeviceRef("ds-7")
	require.True(t, ok)
	require.Equal(t, 7, n)

	n, ok = ParseDeviceRef(" DS-12 ")
	require.True(t, ok)
	require.Equal(t, 12, n)

	n, ok = ParseDeviceRef("ds-2147483647")
	require.True(t, ok)
	require.Equal(t, models.MaxDeviceNo, n)

	for _, bad := range []string{"", "ds-", "ds-x", "7", "ds-1 ds-2", "device-1", "ds-0", "ds-3000000000"} {
		_, ok := ParseDeviceRef(bad)
		require.False(t, ok, bad)
	}
}
