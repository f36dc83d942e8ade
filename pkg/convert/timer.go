package convert

import(
	"log"
	"time"

	"github.com/codahale/hdrhistogram"
)

// UsageTimer logs how long each processing step takes, and accumulates
// the durations so a batch can report percentiles at the end.
type UsageTimer struct {
	Enabled bool
	start   time.Time
	hist    *hdrhistogram.Histogram
}

func NewUsageTimer(enabled bool) *UsageTimer {
	return &UsageTimer{
		Enabled: enabled,
		start:   time.Now(),
		hist:    hdrhistogram.New(1, 10*60*1000, 3), // 1ms .. 10min
	}
}

func (t *UsageTimer)Reset() {
	t.start = time.Now()
}

func (t *UsageTimer)Print(path, step string) {
	if !t.Enabled {
		return
	}

	ms := time.Since(t.start).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	t.hist.RecordValue(ms)
	log.Printf("%s: %s took %d ms", path, step, ms)
}

// Summary logs step-duration percentiles across everything recorded.
func (t *UsageTimer)Summary() {
	if !t.Enabled || t.hist.TotalCount() == 0 {
		return
	}
	log.Printf("Timing: %d steps, p50=%dms p90=%dms max=%dms",
		t.hist.TotalCount(),
		t.hist.ValueAtQuantile(50),
		t.hist.ValueAtQuantile(90),
		t.hist.Max())
}
