package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cyberlab/core"
)

func TestAssignDefaultPositions(t *testing.T) {
	layout := core.LayoutConfig{OriginX: 400, OriginY: 300, CellSize: 150}
	at := func(x, y int) Device { return Device{X: null.IntFrom(x), Y: null.IntFrom(y)} }
	unset := Device{}

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, AssignDefaultPositions(nil, layout))
	})

	t.Run("single device sits on the origin", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{unset}, layout)
		assert.Equal(t, at(400, 300), got[0])
	})

	t.Run("stored position is kept", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{at(150, 220)}, layout)
		assert.Equal(t, at(150, 220), got[0])
	})

	t.Run("(0,0) counts as unset", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{at(0, 0)}, layout)
		assert.Equal(t, at(400, 300), got[0])
	})

	t.Run("half set counts as unset", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{{X: null.IntFrom(10)}}, layout)
		assert.Equal(t, at(400, 300), got[0])
	})

	t.Run("grid of four is 2x2 around the origin", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{unset, unset, unset, unset}, layout)
		assert.Equal(t, []Device{at(325, 225), at(475, 225), at(325, 375), at(475, 375)}, got)
	})

	t.Run("grid of five is 3 columns x 2 rows", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{unset, unset, unset, unset, unset}, layout)
		assert.Equal(t, []Device{at(250, 225), at(400, 225), at(550, 225), at(250, 375), at(400, 375)}, got)
	})

	t.Run("mixed keeps slots by index", func(t *testing.T) {
		devices := []Device{at(150, 220), unset, at(0, 0)}
		got := AssignDefaultPositions(devices, layout)
		assert.Equal(t, []Device{at(150, 220), at(475, 225), at(325, 375)}, got)
		// input untouched
		assert.Equal(t, unset, devices[1])
		assert.Equal(t, at(0, 0), devices[2])
	})

	t.Run("zero cell size falls back to the default", func(t *testing.T) {
		got := AssignDefaultPositions([]Device{unset, unset}, core.LayoutConfig{OriginX: 0, OriginY: 0})
		assert.Equal(t, []Device{at(-75, 0), at(75, 0)}, got)
	})
}

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"https://files.example.com/lab/server.rdp", true},
		{"SERVER.RDP", true},
		{"ssh://student@10.0.0.5", true},
		{"vpc://lab-1/router", true},
		{"ssh://", false},
		{"http://10.0.0.5", false},
		{"server.rdp.txt", false},
		{"telnet://10.0.0.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemoteURL(tt.url))
		})
	}
}

func TestConnectionType_Profile(t *testing.T) {
	assert.Equal(t, LinkProfile{Bandwidth: "100 Mbps", Latency: "5ms"}, ConnectionEthernet.Profile())
	assert.Equal(t, LinkProfile{Bandwidth: "54 Mbps", Latency: "10ms"}, ConnectionWifi.Profile())
	assert.Equal(t, LinkProfile{Bandwidth: "1 Gbps", Latency: "2ms"}, ConnectionFiber.Profile())
	assert.Equal(t, LinkProfile{Bandwidth: "10 Mbps", Latency: "15ms"}, ConnectionCopper.Profile())
	assert.False(t, ConnectionType("serial").IsValid())
}

func TestDeviceType_Style(t *testing.T) {
	for _, dt := range DeviceTypes {
		assert.True(t, dt.IsValid(), dt)
		assert.NotEmpty(t, dt.Style().Color, dt)
	}
	assert.False(t, DeviceType("toaster").IsValid())
	assert.Equal(t, DeviceServer.Style(), DeviceType("toaster").Style())
}
