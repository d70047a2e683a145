package utils

import "github.com/skip2/go-qrcode"

// TicketQR renders the ticket number as a PNG QR code of the given
// pixel size. The payload is just the ticket number; the gate scanner
// resolves it through the validate endpoint.
func TicketQR(ticketNumber string, size int) ([]byte, error) {
	return qrcode.Encode(ticketNumber, qrcode.Medium, size)
}
