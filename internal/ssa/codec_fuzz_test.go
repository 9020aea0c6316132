package ssa

import (
	"bytes"
	"testing"
)

// FuzzDecode feeds arbitrary bytes to the decoder. Decoding must never
// panic, and a decoded module that verifies must survive another
// encode/decode round trip unchanged.
func FuzzDecode(f *testing.F) {
	f.Add(Encode(buildIncrement()))
	f.Add(Encode(buildCountdown()))
	f.Add([]byte("RSSA\x01"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 4096 {
			return
		}
		m, err := Decode(data)
		if err != nil || Verify(m) != nil {
			return
		}
		again := Encode(m)
		restored, err := Decode(again)
		if err != nil {
			t.Fatalf("re-encoded module does not decode: %v", err)
		}
		if !bytes.Equal(Encode(restored), again) {
			t.Fatalf("encoding is not stable after a round trip")
		}
		if got, want := Print(restored), Print(m); got != want {
			t.Fatalf("printed form changed.\ngot:\n%s\nwant:\n%s", got, want)
		}
	})
}
