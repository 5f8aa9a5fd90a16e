package storefront

import (
	"strings"

	"github.com/ttacon/libphonenumber"

	"telegram-storefront-bot/internal/nav"
)

// ContactNormalizer returns a prompt normaliser for "phone or @username"
// answers. Numbers that parse as valid for region are stored in E.164;
// anything else is kept as typed so no contact is lost.
func ContactNormalizer(region, empty string) func(string) (string, error) {
	region = strings.ToUpper(region)
	return func(text string) (string, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return "", &nav.Reject{Message: empty}
		}
		if strings.HasPrefix(text, "@") {
			return text, nil
		}
		if e164, ok := NormalizePhone(text, region); ok {
			return e164, nil
		}
		return text, nil
	}
}

// NormalizePhone formats number as E.164 when libphonenumber considers it
// valid.
func NormalizePhone(number, region string) (string, bool) {
	p, err := libphonenumber.Parse(number, region)
	if err != nil {
		return "", false
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", false
	}
	return libphonenumber.Format(p, libphonenumber.E164), true
}
