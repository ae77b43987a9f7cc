package resolver

import (
	"regexp"
	"strings"
)

var (
	bracketed   = regexp.MustCompile(`\[.*?\]`)
	parenthesed = regexp.MustCompile(`\(.*?\)`)
	noiseWords  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)official video`),
		regexp.MustCompile(`(?i)music video`),
		regexp.MustCompile(`(?i)official`),
	}
	artistPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(.+?)\s*[-–—]\s*(.+)$`),
		regexp.MustCompile(`^(.+?)\s*[|｜]\s*(.+)$`),
		regexp.MustCompile(`^(.+?)\s*:\s*(.+)$`),
	}
)

// ExtractArtist 从视频标题（如 "Daft Punk - One More Time (Official Video)"）猜测艺人
func ExtractArtist(title string) string {
	clean := bracketed.ReplaceAllString(title, "")
	clean = parenthesed.ReplaceAllString(clean, "")
	for _, re := range noiseWords {
		clean = re.ReplaceAllString(clean, "")
	}
	clean = strings.TrimSpace(clean)

	for _, re := range artistPatterns {
		if m := re.FindStringSubmatch(clean); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	words := strings.Split(clean, " ")
	if len(words) > 1 {
		n := min(2, (len(words)+1)/2)
		return strings.Join(words[:n], " ")
	}
	return "Unknown Artist"
}
