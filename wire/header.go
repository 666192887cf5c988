package wire

// Header is the fixed prefix of every outgoing datagram (spec.md §4.1,
// §6): a 16-bit peerID field packing the destination peer slot, a 2-bit
// session id, and the COMPRESSED/SENT_TIME flags, optionally followed
// by a 16-bit sentTime.
type Header struct {
	PeerID     uint16 // 12-bit destination peer id, or NoPeer pre-connect
	SessionID  uint8  // 2-bit session id
	Compressed bool
	HasSentTime bool
	SentTime   uint16 // low 16 bits of the sender's service clock
}

// Encode appends the header onto w.
func (h Header) Encode(w *Writer) {
	v := h.PeerID & peerIDMask
	v |= uint16(h.SessionID&0x3) << sessionShift
	if h.Compressed {
		v |= flagCompressed
	}
	if h.HasSentTime {
		v |= flagSentTime
	}
	w.Uint16(v)
	if h.HasSentTime {
		w.Uint16(h.SentTime)
	}
}

// DecodeHeader reads the fixed header from r.
func DecodeHeader(r *Reader) (Header, error) {
	v, err := r.Uint16()
	if err != nil {
		return Header{}, err
	}
	h := Header{
		PeerID:      v & peerIDMask,
		SessionID:   uint8((v & sessionMask) >> sessionShift),
		Compressed:  v&flagCompressed != 0,
		HasSentTime: v&flagSentTime != 0,
	}
	if h.HasSentTime {
		st, err := r.Uint16()
		if err != nil {
			return Header{}, err
		}
		h.SentTime = st
	}
	return h, nil
}

// Size returns the encoded size of the header in bytes.
func (h Header) Size() int {
	if h.HasSentTime {
		return 4
	}
	return 2
}

// ChecksumSize is the width of the optional checksum word (spec.md §4.9).
const ChecksumSize = 4
