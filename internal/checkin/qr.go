package checkin

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"

	"github.com/umutugur/rezzy-core/internal/models"
)

// EncodeCanonicalURL renders a payload in the canonical URL wire form, the
// format printed on restaurant table cards.
func EncodeCanonicalURL(p *models.CheckInPayload) string {
	return fmt.Sprintf("rezzy://checkin?rid=%s&mid=%s&ts=%s&sig=%s",
		url.QueryEscape(p.RID),
		url.QueryEscape(p.MID),
		url.QueryEscape(p.TS),
		url.QueryEscape(p.Sig),
	)
}

// RenderQR encodes the canonical URL form as a QR PNG of the given pixel
// size. Used by the front-desk reprint flow.
func RenderQR(p *models.CheckInPayload, size int) ([]byte, error) {
	if p == nil {
		return nil, errNotInExpectedFormat()
	}
	return qrcode.Encode(EncodeCanonicalURL(p), qrcode.Medium, size)
}
