package main

import (
	"fmt"
	"os"

	"go.bug.st/serial"
)

// baudRates mirrors the teacher's FX Pak Pro driver: try the fastest rate
// first and fall back if the platform or device rejects it.
var baudRates = []int{921600, 460800, 256000, 128000, 57600, 38400, 19200, 9600}

const (
	usbaOpVPUT   = 1
	usbaSpaceRom = 2
	flagData64B  = 1 << 6
	flagNoResp   = 1 << 0
)

// runFlash streams a built ROM image to an FX Pak Pro-class USB-serial
// cartridge, one 64-byte USBA VPUT command packet followed by the ROM
// data itself in 64-byte chunks — the same packetization the teacher's
// fxpakpro.sendVPUTBatch uses for live memory writes, adapted here to a
// single one-shot whole-ROM write instead of many small requests.
func runFlash(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: snesgen flash <port> <rom-file>")
	}
	port, romPath := args[0], args[1]

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM file: %w", err)
	}

	f, err := openSerial(port)
	if err != nil {
		return fmt.Errorf("opening %s: %w", port, err)
	}
	defer f.Close()

	if err := sendVPUTWhole(f, 0, rom); err != nil {
		return fmt.Errorf("flashing: %w", err)
	}

	fmt.Printf("flashed %d bytes to %s\n", len(rom), port)
	return nil
}

func openSerial(port string) (serial.Port, error) {
	var f serial.Port
	var err error
	for _, baud := range baudRates {
		f, err = serial.Open(port, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err == nil {
			return f, nil
		}
	}
	return nil, err
}

func sendSerial(f serial.Port, buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := f.Write(buf[sent:])
		if err != nil {
			return err
		}
		sent += n
	}
	return nil
}

// sendVPUTWhole sends a single USBA VPUT command header describing the
// full write, then the payload itself packetized into 64-byte chunks
// (zero-padding the final short chunk).
func sendVPUTWhole(f serial.Port, address uint32, data []byte) error {
	cmd := make([]byte, 64)
	copy(cmd[0:4], "USBA")
	cmd[4] = usbaOpVPUT
	cmd[5] = usbaSpaceRom
	cmd[6] = flagData64B | flagNoResp
	cmd[32] = 0 // size field: 0 means "use the accompanying size below"
	cmd[33] = byte(address >> 16)
	cmd[34] = byte(address >> 8)
	cmd[35] = byte(address)
	cmd[36] = byte(len(data))
	cmd[37] = byte(len(data) >> 8)
	cmd[38] = byte(len(data) >> 16)
	cmd[39] = byte(len(data) >> 24)
	if err := sendSerial(f, cmd); err != nil {
		return err
	}

	packets := (len(data) + 63) / 64
	padded := make([]byte, packets*64)
	copy(padded, data)
	return sendSerial(f, padded)
}
