package screening

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies a (resume, job description) pair by content.
// Identical text pairs always map to the same value, which serves as the
// natural dedup key independent of any database id.
func Fingerprint(resumeText, jobDescription string) string {
	sum := sha256.Sum256([]byte(resumeText + jobDescription))
	return hex.EncodeToString(sum[:])
}
