package sem

import "regexp"

// keyFormat is the four-segment canonical-key grammar:
// lower_snake/lower_snake/lower_snake_or_dash/lower_snake. The length
// limit of 64 is checked separately by validKeyFormat.
var keyFormat = regexp.MustCompile(`^[a-z0-9_]+/[a-z0-9_]+/[a-z0-9_-]+/[a-z0-9_]+$`)

// validKeyFormat reports whether key matches the four-segment grammar.
func validKeyFormat(key string) bool {
	return len(key) <= 64 && keyFormat.MatchString(key)
}
