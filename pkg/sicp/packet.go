package sicp

// Encode frames a command packet for the wire:
//
//	size || target || [group] || payload || checksum
//
// The size byte counts the payload plus the size and checksum bytes; the
// checksum is the XOR of every preceding byte, so the XOR over a full
// packet is always zero.
func Encode(target byte, group *byte, payload []byte) []byte {
	packet := make([]byte, 0, len(payload)+4)

	packet = append(packet, byte(len(payload)+2), target)
	if group != nil {
		packet = append(packet, *group)
	}
	packet = append(packet, payload...)

	var checksum byte
	for _, b := range packet {
		checksum ^= b
	}

	return append(packet, checksum)
}

// Classification is the sentinel-driven decision table over a raw reply.
// All three flags false means the reply is indeterminate.
type Classification struct {
	Ack          bool
	Nack         bool
	NotAvailable bool
}

// Acknowledged reports whether the reply is ACK-positive: the ACK sentinel
// was seen and no rejection sentinel was.
func (c Classification) Acknowledged() bool {
	return c.Ack && !c.Nack && !c.NotAvailable
}

// Rejected reports whether the display explicitly refused the command.
func (c Classification) Rejected() bool {
	return c.Nack || c.NotAvailable
}

// Classify scans a raw reply for the reply sentinels. Replies are
// classified best effort; the protocol gives no framing guarantees on the
// return path and an empty reply classifies as indeterminate.
func Classify(reply []byte) Classification {
	var c Classification
	for _, b := range reply {
		switch b {
		case SICP_ACK:
			c.Ack = true
		case SICP_NACK:
			c.Nack = true
		case SICP_NAV:
			c.NotAvailable = true
		}
	}
	return c
}
