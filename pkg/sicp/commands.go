package sicp

import "bytes"

// DefaultPort is the control port SICP displays listen on.
const DefaultPort = 5000

// Reply sentinels. A reply is acknowledged only when SICP_ACK appears and
// neither of the other two does; a reply without any sentinel is
// indeterminate and must not be treated as success.
const (
	SICP_ACK  byte = 0x06
	SICP_NACK byte = 0x15
	SICP_NAV  byte = 0x18 // command understood, function not available
)

// Command opcodes known to this package. Input, volume, mute and brightness
// codes vary between display generations and come from configuration.
const (
	CMD_POWER_SET    byte = 0x18
	CMD_POWER_GET    byte = 0x19
	CMD_VOLUME_SET   byte = 0x44
	CMD_VIDEO_PARAMS byte = 0x32 // default brightness fallback
)

// Power state markers, used both in set payloads and status replies.
const (
	POWER_STATE_OFF byte = 0x01
	POWER_STATE_ON  byte = 0x02
)

// NO_CHANGE is the filler byte for sibling parameters packed after the
// value in the same set command.
const NO_CHANGE byte = 0xFF

// Some set commands carry sibling parameters behind the value byte and the
// display expects explicit "no change" bytes for each of them.
var commandFillers = map[byte]int{
	CMD_VOLUME_SET:   1, // audio out volume rides behind speaker volume
	CMD_VIDEO_PARAMS: 7, // colour, contrast, sharpness, tint, ...
}

func fillerBytes(code byte) []byte {
	n, exists := commandFillers[code]
	if !exists {
		return nil
	}
	return bytes.Repeat([]byte{NO_CHANGE}, n)
}
