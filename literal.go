package spp

import "strconv"

// parseIntLiteral parses the text of an IntegerLiteral Symbol (decimal or
// 0x/0X-prefixed hex) into an int64. It returns ok=false if the text isn't
// a valid integer literal at all; range checks for a particular use (such
// as a %N slot) are left to the caller.
func parseIntLiteral(text string) (int64, bool) {
	if len(text) > 1 && (text[1] == 'x' || text[1] == 'X') && text[0] == '0' {
		v, err := strconv.ParseInt(text[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	return v, err == nil
}
