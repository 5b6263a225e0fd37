package snes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

type ROM struct {
	Contents []byte

	HeaderOffset    uint32
	Header          Header
	NativeVectors   NativeVectors
	EmulatedVectors EmulatedVectors
}

// $FFB0
type Header struct {
	MakerCode          uint16
	GameCode           uint32
	Fixed1             [7]byte
	ExpansionRAMSize   byte
	SpecialVersion     byte
	CartridgeSubType   byte
	Title              [21]byte
	MapMode            byte
	CartridgeType      byte
	ROMSize            byte
	RAMSize            byte
	DestinationCode    byte
	Fixed2             byte
	MaskROMVersion     byte
	ComplementCheckSum uint16
	CheckSum           uint16
}

type NativeVectors struct {
	Unused1 [4]byte
	COP     uint16
	BRK     uint16
	ABORT   uint16
	NMI     uint16
	Unused2 uint16
	IRQ     uint16
}

type EmulatedVectors struct {
	Unused1 [4]byte
	COP     uint16
	Unused2 uint16
	ABORT   uint16
	NMI     uint16
	RESET   uint16
	IRQBRK  uint16
}

func NewROM(contents []byte) (r *ROM, err error) {
	if len(contents) < 0x8000 {
		return nil, fmt.Errorf("ROM file not big enough to contain SNES header")
	}

	headerOffset := uint32(0x007FB0)

	r = &ROM{
		Contents:     contents,
		HeaderOffset: headerOffset,
	}

	// Read SNES header:
	b := bytes.NewReader(contents[headerOffset : headerOffset+0x50])
	err = readBinaryStruct(b, &r.Header)
	if err != nil {
		return
	}
	err = readBinaryStruct(b, &r.NativeVectors)
	if err != nil {
		return
	}
	err = readBinaryStruct(b, &r.EmulatedVectors)
	if err != nil {
		return
	}

	return
}

func readBinaryStruct(b *bytes.Reader, into interface{}) (err error) {
	hv := reflect.ValueOf(into).Elem()
	for i := 0; i < hv.NumField(); i++ {
		f := hv.Field(i)
		var p interface{}

		if !f.CanAddr() {
			panic(fmt.Errorf("error handling struct field %s of type %s; cannot take address of field", hv.Type().Field(i).Name, hv.Type().Name()))
			//p = f.Interface()
			//_, err = b.Read(p.([]byte))
			//if err != nil {
			//	return fmt.Errorf("error reading header field %s: %w", hv.Type().Field(i).Name, err)
			//}
		}

		p = f.Addr().Interface()
		err = binary.Read(b, binary.LittleEndian, p)
		if err != nil {
			return fmt.Errorf("error reading struct field %s of type %s: %w", hv.Type().Field(i).Name, hv.Type().Name(), err)
		}
		//fmt.Printf("%s: %v\n", reflect.TypeOf(r.Header).Field(i).Name, f.Interface())
	}
	return
}

func (r *ROM) ROMSize() uint32 {
	return 1024 << r.Header.ROMSize
}

func (r *ROM) RAMSize() uint32 {
	return 1024 << r.Header.RAMSize
}

// SetROMSize writes the header's ROMSize code byte for a cartridge of the
// given size in bytes, both in the struct and in Contents, for a host
// program to declare the actual size of the buffer it built rather than
// leave behind whatever code byte happened to already be in the image.
// size must be a power of two no smaller than 1024 (the code byte encodes
// size as 1024 << code); any other size is a fatal panic, the same
// declared-unimplemented-layout class as lorom's mapping failures.
func (r *ROM) SetROMSize(size uint32) {
	r.Header.ROMSize = romSizeCode(size)
	r.Contents[r.HeaderOffset+0x27] = r.Header.ROMSize // Header.ROMSize's byte offset
}

func romSizeCode(size uint32) byte {
	if size < 1024 || size&(size-1) != 0 {
		panic(fmt.Errorf("snes: ROM size %d is not a power of two no smaller than 1024 bytes", size))
	}
	code := byte(0)
	for size > 1024 {
		size >>= 1
		code++
	}
	return code
}

// UpdateChecksum recomputes the header's checksum/complement pair over the
// full ROM image and writes both the struct field and the corresponding
// bytes in Contents. The SNES checksum is a plain 16-bit sum of every byte
// in the ROM with the existing checksum/complement field bytes themselves
// forced to 0xFF so the computation doesn't depend on its own prior value.
func (r *ROM) UpdateChecksum() {
	sum := uint16(0)
	checksumOff := r.HeaderOffset + 0x2E // Header.CheckSum's byte offset
	for i, b := range r.Contents {
		if off := uint32(i); off == checksumOff || off == checksumOff+1 ||
			off == checksumOff-2 || off == checksumOff-1 {
			b = 0xFF
		}
		sum += uint16(b)
	}
	r.Header.CheckSum = sum
	r.Header.ComplementCheckSum = ^sum
	binary.LittleEndian.PutUint16(r.Contents[checksumOff-2:], r.Header.ComplementCheckSum)
	binary.LittleEndian.PutUint16(r.Contents[checksumOff:], r.Header.CheckSum)
}

// SetResetVector writes addr's low 16 bits into the emulation-mode RESET
// vector, both in the struct and in Contents. addr is expected to be a
// full CPU address obtained from an asm.AddressMapper; the emulation-mode
// vectors only ever run in bank 0x00, so only the low 16 bits are stored.
func (r *ROM) SetResetVector(addr uint32) {
	r.EmulatedVectors.RESET = uint16(addr)
	r.putEmulatedVector(offsetOf(emulatedVectorsLayout, "RESET"), r.EmulatedVectors.RESET)
}

// SetNativeVectors writes the native-mode NMI and IRQ vector entries. A
// zero argument leaves the corresponding vector untouched.
func (r *ROM) SetNativeVectors(nmi, irq uint32) {
	if nmi != 0 {
		r.NativeVectors.NMI = uint16(nmi)
		r.putNativeVector(offsetOf(nativeVectorsLayout, "NMI"), r.NativeVectors.NMI)
	}
	if irq != 0 {
		r.NativeVectors.IRQ = uint16(irq)
		r.putNativeVector(offsetOf(nativeVectorsLayout, "IRQ"), r.NativeVectors.IRQ)
	}
}

// nativeVectorsLayout/emulatedVectorsLayout name the byte offset of each
// uint16 field within its struct, in the same order readBinaryStruct
// consumes them, so SetResetVector/SetNativeVectors can compute a
// Contents offset without duplicating the struct layout by hand.
var nativeVectorsLayout = []string{"Unused1x4", "COP", "BRK", "ABORT", "NMI", "Unused2", "IRQ"}
var emulatedVectorsLayout = []string{"Unused1x4", "COP", "Unused2", "ABORT", "NMI", "RESET", "IRQBRK"}

func offsetOf(layout []string, field string) uint32 {
	off := uint32(0)
	for _, f := range layout {
		if f == field {
			return off
		}
		if f == "Unused1x4" {
			off += 4
		} else {
			off += 2
		}
	}
	panic(fmt.Errorf("snes: unknown vector field %q", field))
}

func (r *ROM) nativeVectorsOffset() uint32 {
	return r.HeaderOffset + 0x30 // Header is 48 (0x30) bytes
}

func (r *ROM) emulatedVectorsOffset() uint32 {
	return r.nativeVectorsOffset() + 0x10
}

func (r *ROM) putNativeVector(fieldOffset uint32, v uint16) {
	binary.LittleEndian.PutUint16(r.Contents[r.nativeVectorsOffset()+fieldOffset:], v)
}

func (r *ROM) putEmulatedVector(fieldOffset uint32, v uint16) {
	binary.LittleEndian.PutUint16(r.Contents[r.emulatedVectorsOffset()+fieldOffset:], v)
}
