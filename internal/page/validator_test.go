package page

import "testing"

func TestValidateNotFound(t *testing.T) {
	cls, _, err := Validate(nil, 0, 0, false)
	if cls != NotFound || err != nil {
		t.Fatalf("Validate(nil) = (%v, %v), want (NotFound, nil)", cls, err)
	}
}

func TestValidateZeroed(t *testing.T) {
	buf := make([]byte, BlockSize)
	cls, lsn, err := Validate(buf, 0, 0, true)
	if cls != Zeroed || lsn != 0 || err != nil {
		t.Fatalf("Validate(zeroed) = (%v, %d, %v), want (Zeroed, 0, nil)", cls, lsn, err)
	}
}

func TestValidateValidPage(t *testing.T) {
	buf := newValidPage(t, 0x100)
	cls, lsn, err := Validate(buf, 0, 0, true)
	if cls != Valid || lsn != 0x100 || err != nil {
		t.Fatalf("Validate(valid) = (%v, %d, %v), want (Valid, 0x100, nil)", cls, lsn, err)
	}
}

func TestValidateHeaderInvalid(t *testing.T) {
	buf := newValidPage(t, 0x100)
	h := ParseHeader(buf)
	h.Lower = h.Upper + 1
	PutHeader(buf, h)

	cls, _, err := Validate(buf, 0, 0, false)
	if cls != HeaderInvalid {
		t.Fatalf("Validate() classification = %v, want HeaderInvalid", cls)
	}
	if err == nil {
		t.Fatal("expected a detail error for HeaderInvalid")
	}
}

func TestValidateChecksumMismatch(t *testing.T) {
	buf := newValidPage(t, 0x100)
	h := ParseHeader(buf)
	h.Checksum ^= 0xFFFF
	PutHeader(buf, h)

	cls, lsn, err := Validate(buf, 0, 0, true)
	if cls != ChecksumMismatch || lsn != 0x100 {
		t.Fatalf("Validate() = (%v, %d), want (ChecksumMismatch, 0x100)", cls, lsn)
	}
	if err == nil {
		t.Fatal("expected a detail error for ChecksumMismatch")
	}
}

func TestValidateChecksumDisabledIgnoresMismatch(t *testing.T) {
	buf := newValidPage(t, 0x100)
	h := ParseHeader(buf)
	h.Checksum ^= 0xFFFF
	PutHeader(buf, h)

	cls, _, _ := Validate(buf, 0, 0, false)
	if cls != Valid {
		t.Fatalf("Validate() with checksums disabled = %v, want Valid", cls)
	}
}

func TestValidateLSNFromFuture(t *testing.T) {
	buf := newValidPage(t, 0x2000)
	cls, lsn, err := Validate(buf, 0, 0x1000, true)
	if cls != LSNFromFuture || lsn != 0x2000 || err != nil {
		t.Fatalf("Validate() = (%v, %d, %v), want (LSNFromFuture, 0x2000, nil)", cls, lsn, err)
	}
}

func TestValidateInvariantMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *Header)
		substr string
	}{
		{"lower-too-small", func(h *Header) { h.Lower = HeaderSize - 1 }, "less than header size"},
		{"lower-gt-upper", func(h *Header) { h.Lower = h.Upper + 8 }, "greater than upper"},
		{"upper-gt-special", func(h *Header) { h.Upper = h.Special + 8 }, "greater than special"},
		{"special-gt-blocksize", func(h *Header) { h.Special = BlockSize + 8; h.Upper = h.Special }, "greater than block size"},
		{"misaligned-special", func(h *Header) { h.Special = BlockSize - 3; h.Upper = h.Special }, "maximally aligned"},
		{"illegal-flags", func(h *Header) { h.Flags = 0xFF00 }, "illegal flag bits"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := newValidPage(t, 0x100)
			h := ParseHeader(buf)
			tc.mutate(&h)
			PutHeader(buf, h)
			// Corrupt a data byte so the page is not all-zero after mutation.
			buf[BlockSize-1] = 0x7F

			cls, _, err := Validate(buf, 0, 0, false)
			if cls != HeaderInvalid {
				t.Fatalf("classification = %v, want HeaderInvalid", cls)
			}
			if err == nil || !contains(err.Error(), tc.substr) {
				t.Fatalf("error %v does not mention %q", err, tc.substr)
			}
		})
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
