package rom

import "sort"

// BuildRaw concatenates segs into a single flat image with no header, for
// every target in spec.md §4.6's list this repository's architecture
// backends cover only generically (Genesis/m68000, GBA/arm7tdmi, Master
// System/z80, TG16/huc6280, Atari 2600/6502-derived-but-headerless,
// Atari Lynx/65sc02, WonderSwan/v30mz, SPC700): none of these
// formats' real header/checksum conventions are exercised by this
// project's directive catalog (no mapper/region/cart-type directives
// target them), so their builder is the address-ordered byte stream
// itself, gap-filled with zero. A console-accurate header for any of these
// is future work, not a missing feature of the core two-pass model.
func BuildRaw(segs []Segment) ([]byte, error) {
	lo, hi, ok := span(segs)
	if !ok {
		return []byte{}, nil
	}
	return flatten(segs, lo, int(hi-lo), 0x00), nil
}

// BuildSMS, BuildTG16, BuildGenesis, BuildGBA, BuildAtari2600, BuildLynx,
// BuildWonderSwan and BuildSPC700 are named aliases of BuildRaw kept
// distinct so the CLI driver's target-to-builder dispatch table reads the
// same way for every platform in spec.md's Target enum, even though today
// they all share one implementation.
var (
	BuildSMS        = BuildRaw
	BuildTG16       = BuildRaw
	BuildGenesis    = BuildRaw
	BuildGBA        = BuildRaw
	BuildAtari2600  = BuildRaw
	BuildLynx       = BuildRaw
	BuildWonderSwan = BuildRaw
	BuildSPC700     = BuildRaw
)

// SupportedTargets lists every platform name this package can build an
// image for, sorted.
func SupportedTargets() []string {
	names := []string{
		"nes", "snes", "gb",
		"sms", "tg16", "genesis", "gba", "atari2600", "lynx", "wonderswan", "spc700",
	}
	sort.Strings(names)
	return names
}
