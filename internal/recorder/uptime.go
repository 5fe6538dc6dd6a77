package recorder

import (
	"math"
	"math/bits"

	"github.com/woozymasta/bluescore/internal/models"
)

// MaxWindow is the largest trailing window that fits the stored history bitmask.
const MaxWindow = 62

// DefaultWindow is the number of trailing cycles uptime is computed over.
const DefaultWindow = 60

func windowMask(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if n >= 64 {
		return math.MaxUint64
	}

	return (uint64(1) << uint(n)) - 1
}

// Apply returns the record that results from storing out for cycleID on top of prev.
// It reports false when the outcome is older than what is stored and must be dropped.
func Apply(prev models.CheckRecord, svc models.Service, cycleID int64, out models.Outcome, window int) (models.CheckRecord, bool) {
	if window <= 0 || window > MaxWindow {
		window = DefaultWindow
	}
	if cycleID < prev.CycleID {
		return prev, false
	}

	next := prev
	next.ServiceID = svc.ID
	next.Status = out.Status
	next.LastChecked = out.CheckedAt
	next.Points = 0
	if out.Status == models.StatusUp {
		next.Points = svc.PointValue
	}

	ms := out.ResponseTime.Milliseconds()
	next.ResponseTime = &ms

	var bit uint64
	if out.Status == models.StatusUp {
		bit = 1
	}

	if cycleID == prev.CycleID && prev.Samples > 0 {
		// Same cycle replayed: overwrite the newest sample instead of appending.
		next.History = (prev.History &^ 1) | bit
	} else {
		next.History = (prev.History << 1) | bit
		next.Samples = min(prev.Samples+1, window)
	}
	next.Samples = min(next.Samples, window)
	next.History &= windowMask(next.Samples)
	next.CycleID = cycleID
	next.Uptime = uptime(next.History, next.Samples)

	return next, true
}

func uptime(history uint64, samples int) float64 {
	if samples == 0 {
		return 0
	}

	up := bits.OnesCount64(history & windowMask(samples))
	pct := float64(up) * 100 / float64(samples)

	return math.Round(pct*100) / 100
}
