package rom

// HeaderConfig collects every header/metadata field a source's target/
// mapper/lorom/hirom/exhirom directives (and, before assembly ever starts,
// the project config file's own [header] table) can populate. Each
// builder in this package reads only the fields that matter to its
// platform and ignores the rest, so one struct can be threaded through
// regardless of which target was selected — mirroring how the teacher's
// config.Config carries sections for subsystems a given run may not touch.
//
// Source directives populate this struct during pass 1 (target/nes/snes/gb,
// lorom/hirom/exhirom, mapper); a project's config.toml [header] table
// supplies defaults for fields no directive set, letting a build override
// title, region, or cartridge metadata without editing source.
type HeaderConfig struct {
	// Common
	Title  string `toml:"title"`
	Region string `toml:"region"` // "ntsc"/"pal"/"jp"/"us"/"eu" depending on platform

	// NES (iNES)
	Mapper    int    `toml:"mapper"`
	Mirroring string `toml:"mirroring"` // "horizontal" | "vertical" | "four-screen"
	Battery   bool   `toml:"battery"`
	PAL       bool   `toml:"pal"`
	CHRBanks  int    `toml:"chr_banks"` // 0 selects CHR RAM (no CHR segments required)
	PRGRAMKB  int    `toml:"prg_ram_kb"`

	// SNES
	Mapping   string `toml:"mapping"` // "lorom" | "hirom" | "exhirom"
	FastROM   bool   `toml:"fast_rom"`
	CartType  byte   `toml:"cart_type"`
	RAMSizeKB int    `toml:"ram_size_kb"`

	// Game Boy
	CGBFlag     byte `toml:"cgb_flag"` // 0x00 monochrome, 0x80 CGB-enhanced, 0xC0 CGB-only
	SGBFlag     bool `toml:"sgb_flag"`
	CartTypeGB  byte `toml:"cart_type_gb"`
	ROMSizeCode byte `toml:"rom_size_code"`
	RAMSizeCode byte `toml:"ram_size_code"`
	DestCode    byte `toml:"destination_code"` // 0x00 Japan, 0x01 overseas
}
