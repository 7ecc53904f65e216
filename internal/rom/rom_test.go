package rom_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/rom"
)

func TestBuildRaw_FlattensGapsWithZero(t *testing.T) {
	segs := []rom.Segment{
		{Address: 0, Data: []byte{1, 2}},
		{Address: 4, Data: []byte{3, 4}},
	}
	img, err := rom.BuildRaw(segs)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 0, 0, 3, 4}, img)
}

func TestBuildRaw_EmptyInputYieldsEmptyImage(t *testing.T) {
	img, err := rom.BuildRaw(nil)
	require.NoError(t, err)
	require.Empty(t, img)
}

func TestSupportedTargets_IncludesEveryPlatform(t *testing.T) {
	names := rom.SupportedTargets()
	for _, want := range []string{"nes", "snes", "gb", "sms", "tg16", "genesis", "gba", "atari2600", "lynx", "wonderswan", "spc700"} {
		require.Contains(t, names, want)
	}
}
