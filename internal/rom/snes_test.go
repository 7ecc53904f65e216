package rom_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/rom"
)

func TestBuildSNES_LoROMHeaderPlacement(t *testing.T) {
	segs := []rom.Segment{{Address: 0x8000, Data: []byte{0x4c, 0x00, 0x80}}}
	cfg := rom.HeaderConfig{Mapping: "lorom", Title: "TESTROM"}

	img, err := rom.BuildSNES(cfg, segs)
	require.NoError(t, err)

	title := string(img[0x7fc0 : 0x7fc0+21])
	require.Equal(t, "TESTROM"+"              ", title)
	require.Equal(t, byte(0x20), img[0x7fc0+21], "lorom, non-fastrom map mode byte")
}

func TestBuildSNES_HiROMHeaderAtFFC0(t *testing.T) {
	segs := []rom.Segment{{Address: 0xc00000, Data: []byte{0x01, 0x02}}}
	img, err := rom.BuildSNES(rom.HeaderConfig{Mapping: "hirom"}, segs)
	require.NoError(t, err)
	require.True(t, len(img) > 0xffc0+64)
	require.Equal(t, byte(0x21), img[0xffc0+21])
}

func TestBuildSNES_ChecksumComplementPair(t *testing.T) {
	segs := []rom.Segment{{Address: 0, Data: []byte{0x01, 0x02, 0x03}}}
	img, err := rom.BuildSNES(rom.HeaderConfig{Mapping: "lorom"}, segs)
	require.NoError(t, err)

	comp := uint16(img[0x7fc0+28]) | uint16(img[0x7fc0+29])<<8
	sum := uint16(img[0x7fc0+30]) | uint16(img[0x7fc0+31])<<8
	require.Equal(t, ^sum, comp)
}

func TestBuildSNES_UnknownMappingIsError(t *testing.T) {
	segs := []rom.Segment{{Address: 0, Data: []byte{1}}}
	_, err := rom.BuildSNES(rom.HeaderConfig{Mapping: "nrom"}, segs)
	require.Error(t, err)
}
