package period

import (
	"sort"
	"time"
)

// AllTime is the window that starts at the genesis block. It has no offset;
// callers force the start block to 0 instead of resolving a timestamp.
const AllTime = "AllTime"

// Named windows accepted in calculation requests.
const (
	Last24Hours  = "Last24Hours"
	Last7Days    = "Last7Days"
	Last30Days   = "Last30Days"
	Last3Months  = "Last3Months"
	Last6Months  = "Last6Months"
	Last12Months = "Last12Months"
)

// Period is a named relative window.
type Period struct {
	Name    string `json:"name"`
	Seconds int64  `json:"seconds"`
}

// Duration returns the window length.
func (p Period) Duration() time.Duration {
	return time.Duration(p.Seconds) * time.Second
}

// offsets maps window names to their length in seconds.
var offsets = map[string]int64{
	Last24Hours:  86_400,
	Last7Days:    604_800,
	Last30Days:   2_592_000,
	Last3Months:  7_776_000,
	Last6Months:  15_552_000,
	Last12Months: 31_536_000,
}

// Offset returns the window length in seconds. Unknown names, including
// AllTime, map to 0.
func Offset(name string) int64 {
	p, _ := Lookup(name)
	return p.Seconds
}

// Lookup returns the named window and whether it exists. AllTime is not a
// window with an offset and is not returned here.
func Lookup(name string) (Period, bool) {
	s, ok := offsets[name]
	if !ok {
		return Period{}, false
	}
	return Period{Name: name, Seconds: s}, true
}

// Known reports whether name is a valid time_period value, AllTime included.
func Known(name string) bool {
	if name == AllTime {
		return true
	}
	_, ok := Lookup(name)
	return ok
}

// IsAllTime reports whether name selects the whole chain history.
func IsAllTime(name string) bool { return name == AllTime }

// Start returns the UNIX timestamp at which the window begins.
func Start(now time.Time, name string) int64 {
	return now.Unix() - Offset(name)
}

// All returns every named window, shortest first.
func All() []Period {
	ps := make([]Period, 0, len(offsets))
	for name, s := range offsets {
		ps = append(ps, Period{Name: name, Seconds: s})
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Seconds < ps[j].Seconds })
	return ps
}

// Names returns every accepted time_period value, AllTime last.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all)+1)
	for _, p := range all {
		names = append(names, p.Name)
	}
	return append(names, AllTime)
}
