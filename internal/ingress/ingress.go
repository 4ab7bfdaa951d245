// Package ingress is the public packet-info ingress façade: a thin external
// collaborator, not part of the estimation algorithms, that decodes a raw
// wire packet into the netqual.PacketInfo the pipeline actually consumes —
// a flow key and a 32-bit sequence number, walking Ethernet/IP/UDP layers
// with gopacket.
package ingress

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"netqual.dev/netqual/pkg/netqual"
)

// ErrNoSequence is returned when a packet's transport payload is too short
// to contain an RTP-style sequence number.
var ErrNoSequence = errors.New("ingress: payload too short for a sequence number")

// ErrUnsupportedTransport is returned for packets with nothing this façade
// knows how to read a stream/sequence pair out of (i.e. non-UDP).
var ErrUnsupportedTransport = errors.New("ingress: unsupported transport layer")

// rtpHeaderLen is the fixed portion of an RTP header: the sequence number
// sits in the third and fourth octets. The actual codec/CRC choice is
// irrelevant here; any stable extraction rule works for this façade.
const rtpHeaderLen = 4

// Decode parses one raw packet (as captured off the wire, link type lt)
// into a netqual.PacketInfo: the flow key is a CRC32 digest of the source
// and destination IP addresses and ports (the protocol is not hashed)
// fitted to keySize bytes, the stream discriminator is 0 (src->dst) or 1
// (dst->src) picked by comparing the tuple's canonical order, and the
// sequence number is read big-endian from the third and fourth bytes of the
// RTP-style header at the start of the UDP payload.
func Decode(data []byte, lt layers.LinkType, keySize int) (netqual.PacketInfo, error) {
	pkt := gopacket.NewPacket(data, lt, gopacket.NoCopy)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		return netqual.PacketInfo{}, errLayer.Error()
	}

	netFlow, transFlow, ok := flows(pkt)
	if !ok {
		return netqual.PacketInfo{}, ErrUnsupportedTransport
	}

	udp, ok := pkt.TransportLayer().(*layers.UDP)
	if !ok {
		return netqual.PacketInfo{}, ErrUnsupportedTransport
	}
	if len(udp.Payload) < rtpHeaderLen {
		return netqual.PacketInfo{}, ErrNoSequence
	}
	seq := binary.BigEndian.Uint16(udp.Payload[2:4])

	key, stream := flowKey(netFlow, transFlow, keySize)
	return netqual.PacketInfo{
		Stream: netqual.StreamID{FlowKey: key, Stream: stream},
		Seq: uint32(seq),
	}, nil
}

func flows(pkt gopacket.Packet) (net, trans gopacket.Flow, ok bool) {
	nl := pkt.NetworkLayer()
	tl := pkt.TransportLayer()
	if nl == nil || tl == nil {
		return gopacket.Flow{}, gopacket.Flow{}, false
	}
	return nl.NetworkFlow(), tl.TransportFlow(), true
}

// flowKey canonicalizes the 5-tuple so the two directions of one session
// share a flow key, and reports which direction this packet travels as the
// stream discriminator (per-flow StreamId tuple).
func flowKey(netFlow, transFlow gopacket.Flow, keySize int) ([]byte, uint8) {
	srcNet, dstNet := netFlow.Endpoints()
	srcTrans, dstTrans := transFlow.Endpoints()

	forward := srcNet.LessThan(dstNet) ||
		(srcNet == dstNet && srcTrans.LessThan(dstTrans))

	var buf [32]byte
	n := 0
	n += copy(buf[n:], srcNet.Raw())
	n += copy(buf[n:], dstNet.Raw())
	n += copy(buf[n:], srcTrans.Raw())
	n += copy(buf[n:], dstTrans.Raw())
	if !forward {
		// Swap halves so both directions hash identically.
		n = 0
		n += copy(buf[n:], dstNet.Raw())
		n += copy(buf[n:], srcNet.Raw())
		n += copy(buf[n:], dstTrans.Raw())
		n += copy(buf[n:], srcTrans.Raw())
	}

	sum := crc32.ChecksumIEEE(buf[:n])
	key := make([]byte, keySize)
	var enc [4]byte
	binary.BigEndian.PutUint32(enc[:], sum)
	copy(key, enc[:])

	var stream uint8
	if !forward {
		stream = 1
	}
	return key, stream
}
