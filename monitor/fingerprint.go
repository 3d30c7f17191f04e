package monitor

import (
	"crypto/md5"
	"encoding/hex"
)

// Fingerprint is the hex-encoded MD5 digest of one probe's status output. The
// zero value means no fingerprint, i.e. no prior tick has completed yet.
type Fingerprint string

// NewFingerprint hashes the given probe output.
func NewFingerprint(output string) Fingerprint {
	sum := md5.Sum([]byte(output))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// IsZero reports whether the fingerprint is absent.
func (f Fingerprint) IsZero() bool { return f == "" }

// Verdict is the freeze evaluator's decision for one tick.
type Verdict string

const (
	// VerdictHealthy means the status output changed since the previous tick,
	// or that there is no previous tick to compare against.
	VerdictHealthy Verdict = "healthy"
	// VerdictFrozen means two consecutive ticks saw byte-identical status
	// output.
	VerdictFrozen Verdict = "frozen"
)

// Evaluate compares the previous tick's fingerprint against the current one.
// A live OpenVPN instance rolls its byte and packet counters between ticks,
// so an unchanged status output means the process stopped doing work. The
// first tick ever has no history and is always healthy.
func Evaluate(previous, current Fingerprint) Verdict {
	if previous.IsZero() {
		return VerdictHealthy
	}
	if previous == current {
		return VerdictFrozen
	}
	return VerdictHealthy
}
