package t5577

import "testing"

func TestBuildEM4100WriteLiteralExample(t *testing.T) {
	uid := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	prog, err := BuildEM4100Write(uid, 64)
	if err != nil {
		t.Fatal(err)
	}
	if prog.BlockData[0] != 0x00148040 {
		t.Errorf("block_data[0] = %#x, want 0x00148040", prog.BlockData[0])
	}
	if prog.MaxBlocks != 3 {
		t.Errorf("max_blocks = %d, want 3", prog.MaxBlocks)
	}
}

func TestBuildEM4100WriteRejectsBadBitrate(t *testing.T) {
	uid := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if _, err := BuildEM4100Write(uid, 48); err != ErrUnsupportedBitrate {
		t.Fatalf("got err=%v, want ErrUnsupportedBitrate", err)
	}
}

func TestBuildEM4100WriteRejectsBadUID(t *testing.T) {
	if _, err := BuildEM4100Write([]byte{1, 2, 3}, 64); err == nil {
		t.Fatal("expected error for short UID")
	}
}

func TestBitrateCodeMapping(t *testing.T) {
	cases := []struct {
		bitrate uint16
		want    uint32
	}{
		{16, bitrateRF16},
		{32, bitrateRF32},
		{64, bitrateRF64},
	}
	for _, c := range cases {
		got, err := BitrateCode(c.bitrate)
		if err != nil {
			t.Fatalf("BitrateCode(%d): %v", c.bitrate, err)
		}
		if got != c.want {
			t.Errorf("BitrateCode(%d) = %#x, want %#x", c.bitrate, got, c.want)
		}
	}
}
