package ffmpeg

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devbush/voxcribe/internal/domain"
)

var outTimePattern = regexp.MustCompile(`^(\d+):(\d+):(\d+)(?:\.(\d+))?$`)

// progressUpdate is one parsed line of "-progress" output.
type progressUpdate struct {
	processed time.Duration
	hasTime   bool
	end       bool
}

// parseProgressLine understands out_time_us, out_time_ms (also microseconds
// in ffmpeg's output), out_time and progress=end. Other keys are ignored.
func parseProgressLine(line string) progressUpdate {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return progressUpdate{}
	}

	switch key {
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return progressUpdate{}
		}
		return progressUpdate{processed: time.Duration(us) * time.Microsecond, hasTime: true}
	case "out_time":
		d, ok := parseClock(value)
		return progressUpdate{processed: d, hasTime: ok}
	case "progress":
		return progressUpdate{end: value == "end"}
	}
	return progressUpdate{}
}

func parseClock(s string) (time.Duration, bool) {
	m := outTimePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	var frac time.Duration
	if m[4] != "" {
		digits := m[4]
		if len(digits) > 9 {
			digits = digits[:9]
		}
		n, _ := strconv.Atoi(digits + strings.Repeat("0", 9-len(digits)))
		frac = time.Duration(n)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second + frac, true
}

// trackProgress reads "-progress" output from r and reports
// processed/total, clamped and never decreasing. Nothing is reported when
// total is unknown or report is nil. It drains r in every case.
func trackProgress(r io.Reader, total time.Duration, report func(float64)) {
	scanner := bufio.NewScanner(r)
	last := -1.0
	emit := func(ratio float64) {
		ratio = domain.ClampRatio(ratio)
		if ratio <= last {
			return
		}
		last = ratio
		report(ratio)
	}

	for scanner.Scan() {
		if report == nil || total <= 0 {
			continue
		}
		u := parseProgressLine(scanner.Text())
		switch {
		case u.end:
			emit(1)
		case u.hasTime:
			emit(float64(u.processed) / float64(total))
		}
	}
	// Keep the pipe drained so ffmpeg never blocks on a full buffer.
	io.Copy(io.Discard, r)
}
