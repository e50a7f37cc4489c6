package youtube

import (
	"fmt"
	"regexp"
	"strconv"
)

// ISO 8601 duration as the Data API reports it: PT#H#M#S with any
// component absent.
var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration converts an ISO 8601 duration into a readable clock
// form: "PT4M13S" becomes "4:13", "PT1H2M3S" becomes "1:02:03". Empty
// or unparseable input yields "".
func FormatDuration(duration string) string {
	if duration == "" {
		return ""
	}

	matches := durationPattern.FindStringSubmatch(duration)
	if matches == nil {
		return ""
	}

	hours := atoiOrZero(matches[1])
	minutes := atoiOrZero(matches[2])
	seconds := atoiOrZero(matches[3])

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
