package engine

// DistinctReports records a sequence of HID boot-keyboard reports,
// collapsing consecutive duplicates as they arrive, for comparing two
// recorded runs while ignoring how many ticks each report happened to sit
// for. Ported from original_source/src/keymap/distinct_reports.rs.
type DistinctReports struct {
	reports [][8]byte
}

// NewDistinctReports returns a recorder seeded with the all-zero idle
// report, matching every run's starting point.
func NewDistinctReports() *DistinctReports {
	return &DistinctReports{reports: [][8]byte{{}}}
}

// Update appends report, unless it is identical to the most recently
// recorded one.
func (d *DistinctReports) Update(report [8]byte) {
	if last := d.reports[len(d.reports)-1]; last == report {
		return
	}
	d.reports = append(d.reports, report)
}

// Reports returns the recorded distinct reports in order.
func (d *DistinctReports) Reports() [][8]byte { return d.reports }

// Equal compares two recordings, skipping every all-zero report after the
// first that is not the last report of its recording (e.g. a key release
// and re-press landing on the same tick as another key's output settling).
// The first report in both sequences is always the all-zero idle report.
func (d *DistinctReports) Equal(other *DistinctReports) bool {
	if d.reports[0] != other.reports[0] {
		return false
	}
	var zero [8]byte
	i, j := 1, 1
	selfLen, otherLen := len(d.reports), len(other.reports)
	for i < selfLen && j < otherLen {
		for i < selfLen-1 && d.reports[i] == zero {
			i++
		}
		for j < otherLen-1 && other.reports[j] == zero {
			j++
		}
		if d.reports[i] != other.reports[j] {
			return false
		}
		i++
		j++
	}
	return i == selfLen && j == otherLen
}
