package dma

import (
	"testing"

	"github.com/martypc-go/martypc/internal/memmap"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	mem := memmap.New()
	mem.InstallRange(memmap.Range{Start: 0, End: memmap.AddressMask, Kind: memmap.KindRAM})
	return New(mem)
}

// loadChannel programs channel idx's base address/count via the data ports,
// mirroring how a driver primes a transfer (spec §4.4 C4).
func loadChannel(c *Controller, idx int, addr, count uint16) {
	addrPort := uint16(idx * 2)
	countPort := addrPort + 1
	c.flipFlop = false
	c.WriteIO(addrPort, byte(addr))
	c.WriteIO(addrPort, byte(addr>>8))
	c.flipFlop = false
	c.WriteIO(countPort, byte(count))
	c.WriteIO(countPort, byte(count>>8))
}

func TestServiceChannelWritesByteAndCountsDown(t *testing.T) {
	c := newTestController(t)
	loadChannel(c, 1, 0x0500, 1) // two bytes: count register holds count-1
	c.writeRequestRegister(0x04 | 1)

	src := []byte{0xAA, 0xBB}
	i := 0
	for !c.TerminalCount(1) {
		if !c.ServiceChannel(1, func() byte { v := src[i]; i++; return v }, nil) {
			t.Fatalf("ServiceChannel did not transfer while channel is active")
		}
		if i > 2 {
			t.Fatalf("channel never reached terminal count")
		}
	}
	if got := c.mem.Read8(0x0500); got != 0xAA {
		t.Fatalf("byte 0 = %02X, want AA", got)
	}
	if got := c.mem.Read8(0x0501); got != 0xBB {
		t.Fatalf("byte 1 = %02X, want BB", got)
	}
}

func TestMaskedChannelDoesNotService(t *testing.T) {
	c := newTestController(t)
	loadChannel(c, 2, 0x0100, 3)
	c.writeRequestRegister(0x04 | 2)
	c.ch[2].masked = true

	if c.ServiceChannel(2, func() byte { return 0x00 }, nil) {
		t.Fatalf("ServiceChannel transferred on a masked channel")
	}
}

func TestAutoInitReloadsAfterTerminalCount(t *testing.T) {
	c := newTestController(t)
	loadChannel(c, 0, 0x0200, 0)
	c.writeModeRegister(0x10) // channel 0, autoInit
	c.writeRequestRegister(0x04 | 0)

	c.ServiceChannel(0, func() byte { return 0x01 }, nil)
	if !c.TerminalCount(0) {
		t.Fatalf("single-byte transfer did not reach terminal count")
	}
	if c.ch[0].currentAddr != c.ch[0].baseAddr || c.ch[0].currentCnt != c.ch[0].baseCount {
		t.Fatalf("autoInit channel did not reload base address/count")
	}
}
