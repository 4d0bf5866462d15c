package codec

import (
	"bytes"
	"testing"
)

func TestNoneAndUndefinedAlwaysFail(t *testing.T) {
	dst := make([]byte, 64)
	src := make([]byte, 64)

	for _, alg := range []Algorithm{None, Undefined} {
		if _, err := Compress(dst, src, alg, 1); err == nil {
			t.Errorf("Compress(%s) should fail", alg)
		}
		if _, err := Decompress(dst, src, alg); err == nil {
			t.Errorf("Decompress(%s) should fail", alg)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{"none": None, "lz4": LZ4, "zlib": Zlib}
	for s, want := range cases {
		got, err := ParseAlgorithm(s)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = (%v, %v), want (%v, nil)", s, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("bogus"); err == nil {
		t.Error("ParseAlgorithm(bogus) should fail")
	}
}

func compressibleSrc() []byte {
	src := make([]byte, 8192)
	for i := 4096; i < 8192; i++ {
		src[i] = 0xFF
	}
	return src
}

func TestLZ4RoundTrip(t *testing.T) {
	src := compressibleSrc()
	dst := make([]byte, 8192)

	n, err := Compress(dst, src, LZ4, 1)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if n == 0 || n >= len(src) {
		t.Fatalf("expected a compressible payload to shrink, got %d bytes", n)
	}

	out := make([]byte, 8192)
	m, err := Decompress(out, dst[:n], LZ4)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if m != len(src) || !bytes.Equal(out[:m], src) {
		t.Fatalf("round trip mismatch")
	}
}

func TestZlibRoundTrip(t *testing.T) {
	src := compressibleSrc()
	dst := make([]byte, 8192)

	n, err := Compress(dst, src, Zlib, 6)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if n == 0 || n >= len(src) {
		t.Fatalf("expected a compressible payload to shrink, got %d bytes", n)
	}

	out := make([]byte, 8192)
	m, err := Decompress(out, dst[:n], Zlib)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if m != len(src) || !bytes.Equal(out[:m], src) {
		t.Fatalf("round trip mismatch")
	}
}

func TestInvalidLevel(t *testing.T) {
	dst := make([]byte, 64)
	src := make([]byte, 64)
	if _, err := Compress(dst, src, LZ4, 0); err == nil {
		t.Error("level 0 should be rejected")
	}
	if _, err := Compress(dst, src, Zlib, 10); err == nil {
		t.Error("level 10 should be rejected")
	}
}
