package wire

import "fmt"

// CommandHeader is the 2-byte command header plus its 16-bit reliable
// sequence number (spec.md §4.1, §6).
type CommandHeader struct {
	Command                byte // 5-bit command number, low bits
	Acknowledge             bool
	Unsequenced             bool
	ChannelID               uint8
	ReliableSequenceNumber  uint16
}

func (h CommandHeader) encode(w *Writer) {
	b := h.Command & 0x1F
	if h.Acknowledge {
		b |= FlagAcknowledge
	}
	if h.Unsequenced {
		b |= FlagUnsequenced
	}
	w.Byte(b)
	w.Byte(h.ChannelID)
	w.Uint16(h.ReliableSequenceNumber)
}

func decodeCommandHeader(r *Reader) (CommandHeader, error) {
	b, err := r.Byte()
	if err != nil {
		return CommandHeader{}, err
	}
	h := CommandHeader{
		Command:     b & 0x1F,
		Acknowledge: b&FlagAcknowledge != 0,
		Unsequenced: b&FlagUnsequenced != 0,
	}
	h.ChannelID, err = r.Byte()
	if err != nil {
		return CommandHeader{}, err
	}
	h.ReliableSequenceNumber, err = r.Uint16()
	if err != nil {
		return CommandHeader{}, err
	}
	return h, nil
}

// CommandHeaderSize is the fixed size of a command's header portion.
const CommandHeaderSize = 4

// Command is a decoded command record: the header plus whichever
// trailing fields its command number carries (spec.md §6 table) plus
// any raw send payload.
type Command struct {
	Header CommandHeader

	// ACKNOWLEDGE
	ReceivedReliableSequenceNumber uint16
	ReceivedSentTime               uint16

	// CONNECT / VERIFY_CONNECT
	OutgoingPeerID   uint16
	IncomingSessionID uint8
	OutgoingSessionID uint8
	MTU              uint32
	WindowSize       uint32
	ChannelCount     uint32
	IncomingBandwidth uint32
	OutgoingBandwidth uint32
	ThrottleInterval  uint32
	ThrottleAcceleration uint32
	ThrottleDeceleration uint32
	ConnectID        uint32
	Data             uint32

	// DISCONNECT reuses Data.

	// SEND_UNRELIABLE / SEND_UNSEQUENCED
	UnreliableSequenceNumber uint16
	UnsequencedGroup         uint16

	// SEND_FRAGMENT / SEND_UNRELIABLE_FRAGMENT
	StartSequenceNumber uint16
	FragmentCount       uint32
	FragmentNumber      uint32
	TotalLength         uint32
	FragmentOffset      uint32

	// BANDWIDTH_LIMIT reuses IncomingBandwidth/OutgoingBandwidth.
	// THROTTLE_CONFIGURE reuses ThrottleInterval/Acceleration/Deceleration.

	Payload []byte
}

// Encode serializes the command (header + trailing fields + payload)
// onto w, per the record shapes in spec.md §6.
func (c Command) Encode(w *Writer) error {
	c.Header.encode(w)
	switch c.Header.Command {
	case CommandAcknowledge:
		w.Uint16(c.ReceivedReliableSequenceNumber)
		w.Uint16(c.ReceivedSentTime)
	case CommandConnect, CommandVerifyConnect:
		w.Uint16(c.OutgoingPeerID)
		w.Byte(c.IncomingSessionID)
		w.Byte(c.OutgoingSessionID)
		w.Uint32(c.MTU)
		w.Uint32(c.WindowSize)
		w.Uint32(c.ChannelCount)
		w.Uint32(c.IncomingBandwidth)
		w.Uint32(c.OutgoingBandwidth)
		w.Uint32(c.ThrottleInterval)
		w.Uint32(c.ThrottleAcceleration)
		w.Uint32(c.ThrottleDeceleration)
		w.Uint32(c.ConnectID)
		w.Uint32(c.Data)
	case CommandDisconnect:
		w.Uint32(c.Data)
	case CommandPing:
		// no trailing fields
	case CommandSendReliable:
		w.Uint16(uint16(len(c.Payload)))
		w.Bytes(c.Payload)
	case CommandSendUnreliable:
		w.Uint16(c.UnreliableSequenceNumber)
		w.Uint16(uint16(len(c.Payload)))
		w.Bytes(c.Payload)
	case CommandSendFragment, CommandSendUnreliableFragment:
		w.Uint16(c.StartSequenceNumber)
		w.Uint16(uint16(len(c.Payload)))
		w.Uint32(c.FragmentCount)
		w.Uint32(c.FragmentNumber)
		w.Uint32(c.TotalLength)
		w.Uint32(c.FragmentOffset)
		w.Bytes(c.Payload)
	case CommandSendUnsequenced:
		w.Uint16(c.UnsequencedGroup)
		w.Uint16(uint16(len(c.Payload)))
		w.Bytes(c.Payload)
	case CommandBandwidthLimit:
		w.Uint32(c.IncomingBandwidth)
		w.Uint32(c.OutgoingBandwidth)
	case CommandThrottleConfigure:
		w.Uint32(c.ThrottleInterval)
		w.Uint32(c.ThrottleAcceleration)
		w.Uint32(c.ThrottleDeceleration)
	default:
		return fmt.Errorf("wire: unknown command number %d", c.Header.Command)
	}
	return nil
}

// DecodeCommand reads one command record (header, trailing fields, and
// payload where applicable) from r.
func DecodeCommand(r *Reader) (Command, error) {
	header, err := decodeCommandHeader(r)
	if err != nil {
		return Command{}, err
	}
	c := Command{Header: header}

	readLenPrefixedPayload := func() error {
		n, err := r.Uint16()
		if err != nil {
			return err
		}
		payload, err := r.Bytes(int(n))
		if err != nil {
			return err
		}
		c.Payload = payload
		return nil
	}

	switch header.Command {
	case CommandAcknowledge:
		if c.ReceivedReliableSequenceNumber, err = r.Uint16(); err != nil {
			return Command{}, err
		}
		if c.ReceivedSentTime, err = r.Uint16(); err != nil {
			return Command{}, err
		}
	case CommandConnect, CommandVerifyConnect:
		if c.OutgoingPeerID, err = r.Uint16(); err != nil {
			return Command{}, err
		}
		if c.IncomingSessionID, err = r.Byte(); err != nil {
			return Command{}, err
		}
		if c.OutgoingSessionID, err = r.Byte(); err != nil {
			return Command{}, err
		}
		for _, dst := range []*uint32{
			&c.MTU, &c.WindowSize, &c.ChannelCount,
			&c.IncomingBandwidth, &c.OutgoingBandwidth,
			&c.ThrottleInterval, &c.ThrottleAcceleration, &c.ThrottleDeceleration,
			&c.ConnectID, &c.Data,
		} {
			if *dst, err = r.Uint32(); err != nil {
				return Command{}, err
			}
		}
	case CommandDisconnect:
		if c.Data, err = r.Uint32(); err != nil {
			return Command{}, err
		}
	case CommandPing:
		// nothing to read
	case CommandSendReliable:
		if err = readLenPrefixedPayload(); err != nil {
			return Command{}, err
		}
	case CommandSendUnreliable:
		if c.UnreliableSequenceNumber, err = r.Uint16(); err != nil {
			return Command{}, err
		}
		if err = readLenPrefixedPayload(); err != nil {
			return Command{}, err
		}
	case CommandSendFragment, CommandSendUnreliableFragment:
		if c.StartSequenceNumber, err = r.Uint16(); err != nil {
			return Command{}, err
		}
		n, err2 := r.Uint16()
		if err2 != nil {
			return Command{}, err2
		}
		for _, dst := range []*uint32{&c.FragmentCount, &c.FragmentNumber, &c.TotalLength, &c.FragmentOffset} {
			if *dst, err = r.Uint32(); err != nil {
				return Command{}, err
			}
		}
		payload, err3 := r.Bytes(int(n))
		if err3 != nil {
			return Command{}, err3
		}
		c.Payload = payload
	case CommandSendUnsequenced:
		if c.UnsequencedGroup, err = r.Uint16(); err != nil {
			return Command{}, err
		}
		if err = readLenPrefixedPayload(); err != nil {
			return Command{}, err
		}
	case CommandBandwidthLimit:
		if c.IncomingBandwidth, err = r.Uint32(); err != nil {
			return Command{}, err
		}
		if c.OutgoingBandwidth, err = r.Uint32(); err != nil {
			return Command{}, err
		}
	case CommandThrottleConfigure:
		if c.ThrottleInterval, err = r.Uint32(); err != nil {
			return Command{}, err
		}
		if c.ThrottleAcceleration, err = r.Uint32(); err != nil {
			return Command{}, err
		}
		if c.ThrottleDeceleration, err = r.Uint32(); err != nil {
			return Command{}, err
		}
	default:
		return Command{}, fmt.Errorf("wire: unknown command number %d", header.Command)
	}
	return c, nil
}

// HasPayload reports whether this command number carries a raw
// application payload.
func HasPayload(command byte) bool {
	switch command {
	case CommandSendReliable, CommandSendUnreliable, CommandSendFragment,
		CommandSendUnsequenced, CommandSendUnreliableFragment:
		return true
	default:
		return false
	}
}

// RecordSize returns the encoded size of a command record (header +
// trailing fixed fields + payload), used by the pacer to decide what
// fits in the remaining MTU budget.
func RecordSize(c Command) int {
	size := CommandHeaderSize
	switch c.Header.Command {
	case CommandAcknowledge:
		size += 4
	case CommandConnect, CommandVerifyConnect:
		size += 2 + 1 + 1 + 4*10
	case CommandDisconnect:
		size += 4
	case CommandPing:
	case CommandSendReliable:
		size += 2 + len(c.Payload)
	case CommandSendUnreliable:
		size += 2 + 2 + len(c.Payload)
	case CommandSendFragment, CommandSendUnreliableFragment:
		size += 2 + 2 + 4*4 + len(c.Payload)
	case CommandSendUnsequenced:
		size += 2 + 2 + len(c.Payload)
	case CommandBandwidthLimit:
		size += 4 + 4
	case CommandThrottleConfigure:
		size += 4 + 4 + 4
	}
	return size
}
