package youtube

import "regexp"

var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
}

// ExtractVideoID pulls the video id out of the common YouTube URL
// forms. Input that matches no URL form is assumed to already be an id.
func ExtractVideoID(urlOrID string) string {
	for _, pattern := range videoURLPatterns {
		if m := pattern.FindStringSubmatch(urlOrID); m != nil {
			return m[1]
		}
	}
	return urlOrID
}
