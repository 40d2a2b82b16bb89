package qvf

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is the UTF-8 byte order mark some Windows exports prepend.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// decodeText converts a bundle text entry to a UTF-8 string. Load scripts
// exported from Windows clients are frequently UTF-16 with a BOM; plain
// UTF-8 (with or without BOM) passes through unchanged. Undecodable input
// falls back to a raw byte interpretation rather than failing, keeping
// script extraction non-fatal.
func decodeText(data []byte) string {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):])
	}

	if len(data) >= 2 {
		isLE := data[0] == 0xff && data[1] == 0xfe
		isBE := data[0] == 0xfe && data[1] == 0xff
		if isLE || isBE {
			endian := unicode.LittleEndian
			if isBE {
				endian = unicode.BigEndian
			}
			dec := unicode.UTF16(endian, unicode.UseBOM).NewDecoder()
			decoded, _, err := transform.Bytes(dec, data)
			if err == nil {
				return string(decoded)
			}
		}
	}

	return string(data)
}
