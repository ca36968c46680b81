package helper

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InviteCodeLen dipakai untuk kode undangan, kode tutor, dan kode kelas.
const InviteCodeLen = 6

// RandomCode menghasilkan kode uppercase alfanumerik sepanjang n.
func RandomCode(n int) string {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand tidak pernah gagal di platform yang didukung
			panic(err)
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String()
}

// NormalizeCode: input user " ab12cd " -> "AB12CD"
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsValidCode mengecek format [A-Z0-9]{6}.
func IsValidCode(s string) bool {
	if len(s) != InviteCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(codeAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
