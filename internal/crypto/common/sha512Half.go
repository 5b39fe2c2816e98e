package crypto

import "crypto/sha512"

// Sha512Half returns the first 32 bytes of a sha512 hash over the concatenated inputs.
func Sha512Half(msg ...[]byte) [32]byte {
	h := sha512.New()
	for _, m := range msg {
		h.Write(m)
	}
	var result [32]byte
	copy(result[:], h.Sum(nil)[:32])
	return result
}
