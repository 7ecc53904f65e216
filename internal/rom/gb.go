package rom

import "fmt"

const (
	gbROMBankSize = 16 * 1024
	gbMinROMBanks = 2 // every cart is at least 32KB, even with no user data
)

// gbNintendoLogo is the fixed 48-byte bitmap the boot ROM compares against
// byte-for-byte before running the cartridge; every valid Game Boy image
// carries it verbatim at $0104-$0133.
var gbNintendoLogo = []byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// BuildGB assembles a Game Boy ROM image: the cartridge header occupies
// $0100-$014F, overlaid onto whatever the source already emitted there
// (typically a 4-byte entry jump at $0100, the rest reserved for the
// header). The image is padded up to the next valid ROM-size power of two
// (32KB minimum) and the header/global checksums are computed last, since
// both depend on the final, padded image.
func BuildGB(cfg HeaderConfig, segs []Segment) ([]byte, error) {
	_, hi, ok := span(segs)
	if !ok {
		return nil, fmt.Errorf("gb: no data to assemble")
	}
	size := gbMinROMBanks * gbROMBankSize
	for size < int(hi) {
		size *= 2
	}
	img := flatten(segs, 0, size, 0x00)

	copy(img[0x0104:0x0134], gbNintendoLogo)

	title := cfg.Title
	if len(title) > 15 {
		title = title[:15]
	}
	titleField := make([]byte, 15)
	copy(titleField, title)
	copy(img[0x0134:0x0143], titleField)
	img[0x0143] = cfg.CGBFlag
	img[0x0144], img[0x0145] = '0', '0' // new licensee code, unused
	if cfg.SGBFlag {
		img[0x0146] = 0x03
	}
	img[0x0147] = cfg.CartTypeGB
	img[0x0148] = romSizeCodeGB(size)
	img[0x0149] = cfg.RAMSizeCode
	img[0x014A] = cfg.DestCode
	img[0x014B] = 0x33 // old licensee code signalling "see new licensee code"
	img[0x014C] = 0x00 // mask ROM version

	var headerSum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		headerSum = headerSum - img[addr] - 1
	}
	img[0x014D] = headerSum

	var globalSum uint16
	for i, b := range img {
		if i == 0x014E || i == 0x014F {
			continue
		}
		globalSum += uint16(b)
	}
	img[0x014E] = byte(globalSum >> 8)
	img[0x014F] = byte(globalSum)

	return img, nil
}

// romSizeCodeGB maps a padded image size to the header's ROM-size byte,
// per the standard table (0 -> 32KB, 1 -> 64KB, ... one bank-doubling per
// step).
func romSizeCodeGB(size int) byte {
	banks := size / gbROMBankSize
	var code byte
	for banks > gbMinROMBanks {
		banks >>= 1
		code++
	}
	return code
}
