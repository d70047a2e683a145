package utils // package utils provides small helpers shared across services

import (
	"crypto/rand"
	"strings"
)

// ticketAlphabet is Crockford base32: unambiguous uppercase letters
// and digits, safe to read over the phone and to print on a stub.
const ticketAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	ticketBodyLen   = 10
	ticketGroupSize = 5
)

// NewTicketNumber returns a human-displayable ticket number of the
// form "TKT-XXXXX-XXXXXC" where the body is 10 random characters from
// the Crockford alphabet and C is a checksum character over the body.
// With 32^10 possible bodies collisions are negligible; the issuer
// still retries on the unique-index violation rather than failing a
// batch.
func NewTicketNumber() (string, error) {
	buf := make([]byte, ticketBodyLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	body := make([]byte, ticketBodyLen)
	for i, b := range buf {
		body[i] = ticketAlphabet[int(b)%len(ticketAlphabet)]
	}
	check := checksumChar(body)
	var sb strings.Builder
	sb.WriteString("TKT-")
	sb.Write(body[:ticketGroupSize])
	sb.WriteByte('-')
	sb.Write(body[ticketGroupSize:])
	sb.WriteByte(check)
	return sb.String(), nil
}

// ValidTicketNumber reports whether the code has the expected shape
// and a matching checksum character. Gate scanners call this before
// hitting the API so that typos fail fast.
func ValidTicketNumber(code string) bool {
	if !strings.HasPrefix(code, "TKT-") {
		return false
	}
	rest := strings.TrimPrefix(code, "TKT-")
	parts := strings.Split(rest, "-")
	if len(parts) != 2 || len(parts[0]) != ticketGroupSize || len(parts[1]) != ticketGroupSize+1 {
		return false
	}
	body := parts[0] + parts[1][:ticketGroupSize]
	for i := 0; i < len(body); i++ {
		if !strings.ContainsRune(ticketAlphabet, rune(body[i])) {
			return false
		}
	}
	return checksumChar([]byte(body)) == parts[1][ticketGroupSize]
}

// checksumChar folds the alphabet positions of the body into a single
// character. Weighted by position so transpositions are caught.
func checksumChar(body []byte) byte {
	sum := 0
	for i, c := range body {
		sum += (i + 1) * strings.IndexByte(ticketAlphabet, c)
	}
	return ticketAlphabet[sum%len(ticketAlphabet)]
}
