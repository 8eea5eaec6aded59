package receipt

import (
	"encoding/base64"
	"errors"
	"html"
	"strings"
	"unicode"
)

var errNotBase64 = errors.New("document is not valid base64")

// DecodeDocument base64-decodes s and then resolves HTML entities, both
// numeric and named. Whitespace and missing padding are tolerated.
func DecodeDocument(s string) (string, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return "", err
	}
	decoded := html.UnescapeString(string(raw))
	if decoded == "" {
		return "", errors.New("document decoded to an empty string")
	}
	return decoded, nil
}

func decodeBase64(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	unpadded := strings.TrimRight(cleaned, "=")

	if out, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
		return out, nil
	}
	if out, err := base64.RawStdEncoding.DecodeString(unpadded); err == nil {
		return out, nil
	}
	if out, err := base64.URLEncoding.DecodeString(cleaned); err == nil {
		return out, nil
	}
	if out, err := base64.RawURLEncoding.DecodeString(unpadded); err == nil {
		return out, nil
	}
	return nil, errNotBase64
}
