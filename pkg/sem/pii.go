package sem

import "regexp"

// piiPatterns are the literal-content rejections a SEM write must pass:
// the literal "PII", a 16-digit credit-card-shaped run (optionally
// separated by '-' or space in groups of four), and a 3-2-4 SSN-shaped
// run.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`PII`),
	regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
}

// containsPII reports whether blob contains any of the literal PII
// shapes SEM must reject on write.
func containsPII(blob []byte) bool {
	for _, p := range piiPatterns {
		if p.Match(blob) {
			return true
		}
	}
	return false
}
