package fingerprint

import (
	"crypto/sha512"
	"encoding/binary"
	"strings"

	"quantum-ratchet/crypto/kem"
)

const iterations = 5200

// Fingerprint turns a signed KEM key into 30 decimal digits, the way Signal
// renders safety numbers. Both the identity key and the KEM key it vouches
// for are covered.
func Fingerprint(spk *kem.SignedPublicKey) [30]int {
	digest := make([]byte, 0, len(spk.IdentityKey)+len(spk.KEMPublicKey)+len(spk.Username))
	digest = append(digest, spk.IdentityKey...)
	digest = append(digest, spk.KEMPublicKey...)
	digest = append(digest, strings.ToLower(spk.Username)...)

	hash := sha512.New()
	for i := 0; i < iterations; i++ {
		hash.Write(digest)
		digest = hash.Sum(nil)
		hash.Reset()
	}

	var result [30]int
	for i := 0; i < 6; i++ {
		chunk := digest[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		for j := 4; j >= 0; j-- {
			result[i*5+j] = int(num % 10)
			num /= 10
		}
	}
	return result
}

// String renders a fingerprint as six groups of five digits.
func String(fp [30]int) string {
	var b strings.Builder
	for i, d := range fp {
		if i > 0 && i%5 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

// SafetyNumber is the 60-digit number both parties compare out of band.
// It does not depend on which side computes it.
func SafetyNumber(a, b *kem.SignedPublicKey) string {
	fa, fb := String(Fingerprint(a)), String(Fingerprint(b))
	if fb < fa {
		fa, fb = fb, fa
	}
	return fa + " " + fb
}
