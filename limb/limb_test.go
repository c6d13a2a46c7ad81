package limb

import (
	"math/big"
	"strings"
	"testing"
)

func mustJoin(t *testing.T, limbs []*big.Int) *big.Int {
	t.Helper()
	v, err := Join(limbs)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	return v
}

func mustSplit(t *testing.T, v *big.Int) []*big.Int {
	t.Helper()
	limbs, err := Split(v)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	return limbs
}

func TestSplitJoinRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(1 << 40),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), Bits), big.NewInt(1)),
		new(big.Int).Lsh(big.NewInt(1), Bits),
		new(big.Int).Lsh(big.NewInt(1), 2047),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), Count*Bits), big.NewInt(1)),
	}
	for _, v := range values {
		limbs := mustSplit(t, v)
		if len(limbs) != Count {
			t.Fatalf("Split returned %d limbs, want %d", len(limbs), Count)
		}
		back := mustJoin(t, limbs)
		if back.Cmp(v) != 0 {
			t.Fatalf("round trip mismatch: got %s, want %s", back, v)
		}
	}
}

func TestSplitPlacesLowBitsFirst(t *testing.T) {
	v := new(big.Int).Lsh(big.NewInt(7), Bits) // 7 in limb 1
	limbs := mustSplit(t, v)
	if limbs[0].Sign() != 0 {
		t.Fatalf("limb 0 = %s, want 0", limbs[0])
	}
	if limbs[1].Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("limb 1 = %s, want 7", limbs[1])
	}
}

func TestSplitRejectsOutOfRange(t *testing.T) {
	if _, err := Split(nil); err == nil {
		t.Fatal("Split accepted nil")
	}
	if _, err := Split(big.NewInt(-1)); err == nil {
		t.Fatal("Split accepted negative value")
	}
	if _, err := Split(new(big.Int).Lsh(big.NewInt(1), Count*Bits)); err == nil {
		t.Fatal("Split accepted oversize value")
	}
}

func TestJoinRejectsBadLimbs(t *testing.T) {
	good := mustSplit(t, big.NewInt(42))

	if _, err := Join(good[:Count-1]); err == nil {
		t.Fatal("Join accepted short slice")
	}

	withNil := append([]*big.Int(nil), good...)
	withNil[3] = nil
	if _, err := Join(withNil); err == nil {
		t.Fatal("Join accepted nil limb")
	}

	negative := append([]*big.Int(nil), good...)
	negative[0] = big.NewInt(-1)
	if _, err := Join(negative); err == nil {
		t.Fatal("Join accepted negative limb")
	}

	wide := append([]*big.Int(nil), good...)
	wide[0] = new(big.Int).Lsh(big.NewInt(1), Bits)
	if _, err := Join(wide); err == nil {
		t.Fatal("Join accepted over-wide limb")
	}
}

func TestFromBytesMatchesSetBytes(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0xfe, 0xff}
	limbs, err := FromBytes(b)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	got := mustJoin(t, limbs)
	want := new(big.Int).SetBytes(b)
	if got.Cmp(want) != 0 {
		t.Fatalf("FromBytes joined to %s, want %s", got, want)
	}
}

func TestHexRoundTrip(t *testing.T) {
	v := new(big.Int).Lsh(big.NewInt(0xabcdef), 300)
	limbs := mustSplit(t, v)
	ss := FormatHex(limbs)
	if len(ss) != Count {
		t.Fatalf("FormatHex returned %d strings, want %d", len(ss), Count)
	}
	for i, s := range ss {
		if !strings.HasPrefix(s, "0x") {
			t.Fatalf("limb %d string %q lacks 0x prefix", i, s)
		}
	}
	parsed, err := ParseHex(ss)
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	back := mustJoin(t, parsed)
	if back.Cmp(v) != 0 {
		t.Fatalf("hex round trip mismatch: got %s, want %s", back, v)
	}
}

func TestParseHexRejectsMalformed(t *testing.T) {
	ss := FormatHex(mustSplit(t, big.NewInt(5)))

	short := ss[:Count-1]
	if _, err := ParseHex(short); err == nil {
		t.Fatal("ParseHex accepted short slice")
	}

	noPrefix := append([]string(nil), ss...)
	noPrefix[0] = "ff"
	if _, err := ParseHex(noPrefix); err == nil {
		t.Fatal("ParseHex accepted missing prefix")
	}

	badHex := append([]string(nil), ss...)
	badHex[0] = "0xzz"
	if _, err := ParseHex(badHex); err == nil {
		t.Fatal("ParseHex accepted invalid hex")
	}
}
