// Package wol builds and broadcasts standard wake-on-LAN magic packets.
package wol

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// Port is the UDP discard port magic packets are broadcast on.
const Port = 9

// universalBroadcast is the fallback target when no directed broadcast
// address can be derived from the host.
const universalBroadcast = "255.255.255.255"

// MagicPacket builds the 102-byte wake payload for a hardware address:
// six 0xFF bytes followed by sixteen repetitions of the address.
// Separators (":" or "-") in the address are accepted.
func MagicPacket(mac string) ([]byte, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(mac)
	hw, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("parse hardware address %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("hardware address %q must be 6 bytes, got %d", mac, len(hw))
	}

	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}
	return packet, nil
}

// DirectedBroadcast computes the subnet broadcast address for a host,
// assuming a /24 network. Hosts that don't parse as IPv4 fall back to
// the universal broadcast address.
func DirectedBroadcast(host string) string {
	ip := net.ParseIP(host)
	if ip == nil {
		return universalBroadcast
	}
	v4 := ip.To4()
	if v4 == nil {
		return universalBroadcast
	}

	broadcast := make(net.IP, len(v4))
	copy(broadcast, v4)
	broadcast[3] = 0xFF
	return broadcast.String()
}

// Broadcast sends the packet to both the universal broadcast address
// and the host's directed /24 broadcast address on the wake port.
func Broadcast(packet []byte, host string) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return fmt.Errorf("open broadcast socket: %w", err)
	}
	defer conn.Close()

	targets := []string{universalBroadcast, DirectedBroadcast(host)}
	for _, target := range targets {
		addr := &net.UDPAddr{IP: net.ParseIP(target), Port: Port}
		if _, err := conn.WriteToUDP(packet, addr); err != nil {
			return fmt.Errorf("broadcast to %s: %w", target, err)
		}
	}
	return nil
}
