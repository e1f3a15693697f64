package wol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicPacket(t *testing.T) {
	packet, err := MagicPacket("00:11:22:33:44:55")
	require.NoError(t, err)
	require.Len(t, packet, 102)

	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), packet[:6])

	hw := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	for i := 0; i < 16; i++ {
		start := 6 + i*6
		assert.Equal(t, hw, packet[start:start+6])
	}
}

func TestMagicPacket_AcceptsDashSeparators(t *testing.T) {
	withColons, err := MagicPacket("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	withDashes, err := MagicPacket("aa-bb-cc-dd-ee-ff")
	require.NoError(t, err)
	assert.Equal(t, withColons, withDashes)
}

func TestMagicPacket_RejectsInvalidAddresses(t *testing.T) {
	_, err := MagicPacket("not-a-mac")
	require.Error(t, err)

	_, err = MagicPacket("00:11:22:33:44")
	require.Error(t, err)
}

func TestDirectedBroadcast(t *testing.T) {
	assert.Equal(t, "192.168.1.255", DirectedBroadcast("192.168.1.50"))
	assert.Equal(t, "10.0.0.255", DirectedBroadcast("10.0.0.1"))
	assert.Equal(t, "255.255.255.255", DirectedBroadcast("not-an-ip"))
	assert.Equal(t, "255.255.255.255", DirectedBroadcast("fe80::1"))
}
