package lab

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type DeviceType string

const (
	DeviceServer   DeviceType = "server"
	DeviceRouter   DeviceType = "router"
	DeviceSwitch   DeviceType = "switch"
	DeviceComputer DeviceType = "computer"
	DeviceLaptop   DeviceType = "laptop"
	DeviceWifi     DeviceType = "wifi"
	DeviceInternet DeviceType = "internet"
	DeviceDatabase DeviceType = "database"
	DeviceTerminal DeviceType = "terminal"
	DeviceMonitor  DeviceType = "monitor"
)

// DeviceStyle is the default look of a device type on the diagram.
type DeviceStyle struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var deviceStyles = map[DeviceType]DeviceStyle{
	DeviceServer:   {Color: "#3b82f6", Icon: "server"},
	DeviceRouter:   {Color: "#10b981", Icon: "router"},
	DeviceSwitch:   {Color: "#8b5cf6", Icon: "network"},
	DeviceComputer: {Color: "#f59e0b", Icon: "monitor"},
	DeviceLaptop:   {Color: "#ec4899", Icon: "laptop"},
	DeviceWifi:     {Color: "#06b6d4", Icon: "wifi"},
	DeviceInternet: {Color: "#6366f1", Icon: "globe"},
	DeviceDatabase: {Color: "#ef4444", Icon: "database"},
	DeviceTerminal: {Color: "#64748b", Icon: "terminal"},
	DeviceMonitor:  {Color: "#84cc16", Icon: "monitor-check"},
}

// DeviceTypes lists the known device types in display order.
var DeviceTypes = []DeviceType{
	DeviceServer, DeviceRouter, DeviceSwitch, DeviceComputer, DeviceLaptop,
	DeviceWifi, DeviceInternet, DeviceDatabase, DeviceTerminal, DeviceMonitor,
}

func (dt DeviceType) IsValid() bool {
	_, ok := deviceStyles[dt]
	return ok
}

// Style returns the default style of the type; unknown types get the server style.
func (dt DeviceType) Style() DeviceStyle {
	if s, ok := deviceStyles[dt]; ok {
		return s
	}
	return deviceStyles[DeviceServer]
}

type ConnectionType string

const (
	ConnectionEthernet ConnectionType = "ethernet"
	ConnectionWifi     ConnectionType = "wifi"
	ConnectionFiber    ConnectionType = "fiber"
	ConnectionCopper   ConnectionType = "copper"
)

// LinkProfile is the bandwidth/latency pair implied by a connection type.
type LinkProfile struct {
	Bandwidth string
	Latency   string
}

var linkProfiles = map[ConnectionType]LinkProfile{
	ConnectionEthernet: {Bandwidth: "100 Mbps", Latency: "5ms"},
	ConnectionWifi:     {Bandwidth: "54 Mbps", Latency: "10ms"},
	ConnectionFiber:    {Bandwidth: "1 Gbps", Latency: "2ms"},
	ConnectionCopper:   {Bandwidth: "10 Mbps", Latency: "15ms"},
}

func (ct ConnectionType) IsValid() bool {
	_, ok := linkProfiles[ct]
	return ok
}

func (ct ConnectionType) Profile() LinkProfile {
	return linkProfiles[ct]
}

type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
)

func (cs ConnectionStatus) IsValid() bool {
	switch cs {
	case StatusConnected, StatusDisconnected, StatusConnecting:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionRunning SessionStatus = "running"
	SessionStopped SessionStatus = "stopped"
)

type Lab struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Instructions string    `json:"instructions" db:"instructions"`
	CourseID     string    `json:"course_id" db:"course_id"`
	Difficulty   string    `json:"difficulty" db:"difficulty"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type Device struct {
	ID        string      `json:"id" db:"id"`
	LabID     string      `json:"lab_id" db:"lab_id"`
	Name      string      `json:"name" db:"name"`
	Type      DeviceType  `json:"type" db:"type"`
	IP        string      `json:"ip" db:"ip"`
	URL       null.String `json:"url" db:"url"`
	X         null.Int    `json:"x" db:"x"`
	Y         null.Int    `json:"y" db:"y"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
}

// HasPosition reports whether the device has a usable stored position.
// Unset coordinates and the (0,0) origin both mean "not placed yet".
func (d Device) HasPosition() bool {
	if !d.X.Valid || !d.Y.Valid {
		return false
	}
	return !(d.X.Int == 0 && d.Y.Int == 0)
}

type Connection struct {
	ID             string           `json:"id" db:"id"`
	LabID          string           `json:"lab_id" db:"lab_id"`
	SourceDeviceID string           `json:"source_device_id" db:"source_device_id"`
	TargetDeviceID string           `json:"target_device_id" db:"target_device_id"`
	Type           ConnectionType   `json:"connection_type" db:"connection_type"`
	Status         ConnectionStatus `json:"status" db:"status"`
	Bandwidth      string           `json:"bandwidth" db:"bandwidth"`
	Latency        string           `json:"latency" db:"latency"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"` // UTC
}

// Touches reports whether the connection has the device at either end.
func (c Connection) Touches(deviceID string) bool {
	return c.SourceDeviceID == deviceID || c.TargetDeviceID == deviceID
}

// Links reports whether the connection joins a and b, in either direction.
func (c Connection) Links(a, b string) bool {
	return (c.SourceDeviceID == a && c.TargetDeviceID == b) || (c.SourceDeviceID == b && c.TargetDeviceID == a)
}

type Session struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"user_id" db:"user_id"`
	LabID     string        `json:"lab_id" db:"lab_id"`
	Status    SessionStatus `json:"status" db:"status"`
	StartedAt time.Time     `json:"started_at" db:"started_at"` // UTC
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"` // UTC
}

// Topology is a lab with its diagram: devices (placed) and connections.
type Topology struct {
	Lab         Lab          `json:"lab"`
	Devices     []Device     `json:"devices"`
	Connections []Connection `json:"connections"`
}

// ConnectTarget is what a student gets back when allowed to open a device.
type ConnectTarget struct {
	DeviceID string `json:"device_id"`
	URL      string `json:"url"`
}
