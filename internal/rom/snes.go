package rom

import "fmt"

const snesHeaderSize = 64

// snesHeaderOffset returns the absolute byte offset within the final ROM
// image where the 64-byte internal header begins, per spec.md §4.6: $7fc0
// for LoROM, $ffc0 for HiROM. ExHiROM's header sits at the same $ffc0
// offset within its first 4MB "slow" bank window; the extra address space
// beyond that is addressed through the mapping's bank-switch, not through
// this builder's flat output.
func snesHeaderOffset(mapping string) (int, error) {
	switch mapping {
	case "lorom":
		return 0x7fc0, nil
	case "hirom", "exhirom":
		return 0xffc0, nil
	default:
		return 0, fmt.Errorf("snes: unknown memory mapping %q (expected lorom/hirom/exhirom)", mapping)
	}
}

func snesMapModeByte(mapping string, fastROM bool) byte {
	var b byte
	switch mapping {
	case "lorom":
		b = 0x20
	case "hirom":
		b = 0x21
	case "exhirom":
		b = 0x25
	}
	if fastROM {
		b |= 0x10
	}
	return b
}

// romSizeExponent returns the SNES header's ROM-size byte: log2(sizeKB),
// the convention used by every real SNES header.
func romSizeExponent(sizeBytes int) byte {
	kb := sizeBytes / 1024
	var exp byte
	for kb > 1 {
		kb >>= 1
		exp++
	}
	return exp
}

func ramSizeExponent(kb int) byte {
	if kb <= 0 {
		return 0
	}
	var exp byte
	for kb > 1 {
		kb >>= 1
		exp++
	}
	return exp
}

// BuildSNES assembles a headered SNES ROM image. segs is the full address-
// tagged byte stream (LoROM/HiROM bank mapping is the source's concern via
// .org; this builder only places the internal header and pads/checksums
// the result). The image is padded up to the header offset plus 64 bytes
// at minimum, and to the next power-of-two ROM size for the checksum
// calculation, per the real hardware's "checksum over the padded image"
// convention.
func BuildSNES(cfg HeaderConfig, segs []Segment) ([]byte, error) {
	lo, hi, ok := span(segs)
	if !ok {
		return nil, fmt.Errorf("snes: no data to assemble")
	}
	hdrOffset, err := snesHeaderOffset(cfg.Mapping)
	if err != nil {
		return nil, err
	}

	minSize := int(hi - lo)
	if need := hdrOffset + snesHeaderSize; need > minSize {
		minSize = need
	}
	size := 1024
	for size < minSize {
		size *= 2
	}

	img := flatten(segs, lo, size, 0x00)

	title := cfg.Title
	if len(title) > 21 {
		title = title[:21]
	}
	for len(title) < 21 {
		title += " "
	}
	copy(img[hdrOffset:hdrOffset+21], title)
	img[hdrOffset+21] = snesMapModeByte(cfg.Mapping, cfg.FastROM)
	img[hdrOffset+22] = cfg.CartType
	img[hdrOffset+23] = romSizeExponent(size)
	img[hdrOffset+24] = ramSizeExponent(cfg.RAMSizeKB)
	img[hdrOffset+25] = regionByte(cfg.Region)
	img[hdrOffset+26] = 0x00 // developer ID, unused by this toolchain
	img[hdrOffset+27] = 0x00 // mask ROM version

	// Checksum is computed over the image with the checksum/complement
	// field itself zeroed, then the complement is its bitwise inverse.
	img[hdrOffset+28], img[hdrOffset+29] = 0, 0
	img[hdrOffset+30], img[hdrOffset+31] = 0, 0
	var sum uint16
	for _, b := range img {
		sum += uint16(b)
	}
	img[hdrOffset+28] = byte(^sum)
	img[hdrOffset+29] = byte(^sum >> 8)
	img[hdrOffset+30] = byte(sum)
	img[hdrOffset+31] = byte(sum >> 8)

	return img, nil
}

func regionByte(region string) byte {
	switch region {
	case "pal", "eu":
		return 0x02
	case "jp":
		return 0x00
	default: // "ntsc"/"us"
		return 0x01
	}
}
