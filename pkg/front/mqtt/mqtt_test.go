package mqtt

import (
	"strings"
	"testing"

	"github.com/sicpd/sicpd-go/pkg/sicp"
)

func byteptr(b byte) *byte { return &b }

func testDevice(t *testing.T, dc sicp.DeviceConfig) *sicp.Device {
	t.Helper()

	device, err := sicp.NewDevice(dc, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	return device
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in     string
		expect string
	}{
		{"Lobby", "lobby"},
		{"Meeting Room 2", "meeting_room_2"},
		{"Café Écran", "cafe_ecran"},
		{"  weird -- name!  ", "weird_name"},
	}

	for _, tt := range tests {
		if got := slug(tt.in); got != tt.expect {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.expect)
		}
	}
}

func TestDisplayFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		name  string
		ok    bool
	}{
		{"sicpd/lobby/set/power", "lobby", true},
		{"sicpd/meeting room/set/volume", "meeting room", true},
		{"sicpd/lobby/set", "", false},
		{"sicpd/lobby/set/power/extra", "", false},
	}

	for _, tt := range tests {
		name, ok := displayFromTopic(tt.topic)
		if name != tt.name || ok != tt.ok {
			t.Errorf("displayFromTopic(%q) = %q, %t; want %q, %t", tt.topic, name, ok, tt.name, tt.ok)
		}
	}
}

func TestResolveInput(t *testing.T) {
	device := testDevice(t, sicp.DeviceConfig{
		Name:     "lobby",
		Host:     "10.0.0.2",
		TargetId: 1,
		Inputs: []sicp.InputConfig{
			{Id: 1, Label: "HDMI 1", Code: 0x0d},
			{Id: 2, Label: "VGA", Code: 0x05},
		},
	})

	relay := &MqttRelay{devices: map[string]*sicp.Device{"lobby": device}}

	tests := []struct {
		payload string
		expect  int
		fails   bool
	}{
		{"2", 2, false},
		{"HDMI 1", 1, false},
		{"VGA", 2, false},
		{"DisplayPort", 0, true},
	}

	for _, tt := range tests {
		input, err := relay.resolveInput("lobby", tt.payload)
		if tt.fails {
			if err == nil {
				t.Errorf("resolveInput(%q): expected an error", tt.payload)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolveInput(%q): %v", tt.payload, err)
			continue
		}
		if input != tt.expect {
			t.Errorf("resolveInput(%q) = %d, want %d", tt.payload, input, tt.expect)
		}
	}

	if _, err := relay.resolveInput("nope", "HDMI 1"); err == nil {
		t.Error("labels must not resolve against an unknown display")
	}
}

func TestCreateDisplayDiscoveryMessages(t *testing.T) {
	full := testDevice(t, sicp.DeviceConfig{
		Name:     "Café Écran",
		Host:     "10.0.0.2",
		TargetId: 1,
		Inputs: []sicp.InputConfig{
			{Id: 1, Label: "HDMI 1", Code: 0x0d},
		},
		Volume: &sicp.AxisConfig{
			Min: 0, Max: 60, Initial: 20,
			SetCode:        byteptr(0x44),
			MuteToggleCode: byteptr(0x1c),
		},
	})

	bare := testDevice(t, sicp.DeviceConfig{
		Name:     "bare",
		Host:     "10.0.0.3",
		TargetId: 1,
	})

	collect := func(device *sicp.Device) ([]string, []string) {
		var topics, messages []string
		err := createDisplayDiscoveryMessages("homeassistant", "sicpd", device,
			func(topic, addMsg, removeMsg string) {
				topics = append(topics, topic)
				messages = append(messages, addMsg)
			})
		if err != nil {
			t.Fatal(err)
		}
		return topics, messages
	}

	topics, messages := collect(full)
	expect := []string{
		"homeassistant/switch/sicp_cafe_ecran_power/config",
		"homeassistant/select/sicp_cafe_ecran_input/config",
		"homeassistant/number/sicp_cafe_ecran_volume/config",
		"homeassistant/switch/sicp_cafe_ecran_mute/config",
		"homeassistant/number/sicp_cafe_ecran_brightness/config",
	}
	if len(topics) != len(expect) {
		t.Fatalf("announced %d entities, want %d: %v", len(topics), len(expect), topics)
	}
	for i := range expect {
		if topics[i] != expect[i] {
			t.Errorf("topic %d = %q, want %q", i, topics[i], expect[i])
		}
	}
	for _, msg := range messages {
		if !strings.Contains(msg, `"sicp_cafe_ecran`) {
			t.Errorf("message %q does not reference the device id", msg)
		}
	}

	topics, _ = collect(bare)
	expect = []string{
		"homeassistant/switch/sicp_bare_power/config",
		"homeassistant/number/sicp_bare_brightness/config",
	}
	if len(topics) != len(expect) || topics[0] != expect[0] || topics[1] != expect[1] {
		t.Errorf("bare display announced %v, want %v", topics, expect)
	}
}
