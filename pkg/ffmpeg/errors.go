package ffmpeg

import (
	"regexp"
	"strings"
)

// Classify condenses a raw encoder diagnostic stream into a short
// human-readable failure message. It is a best-effort heuristic: version
// banners, build configuration and progress counters are stripped, lines
// carrying failure keywords are preferred, known failure signatures are
// matched next, and the tail of the stream is the last resort. It never
// returns an empty string for a genuine failure.
func Classify(diagnostics string) string {
	lines := strings.Split(diagnostics, "\n")

	var meaningful []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isNoise(trimmed) {
			continue
		}
		meaningful = append(meaningful, trimmed)
	}

	if msgs := failureLines(meaningful); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}

	if msg := knownSignature(meaningful); msg != "" {
		return msg
	}

	// Last resort: the tail of the diagnostic stream.
	tail := meaningful
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	if len(tail) > 0 {
		return strings.Join(tail, "; ")
	}
	return "encoder exited abnormally with no diagnostic output"
}

var (
	noisePrefixes = []string{
		"ffmpeg version",
		"ffprobe version",
		"built with",
		"configuration:",
		"Press [q] to stop",
		"Stream mapping:",
		"Input #",
		"Output #",
		"Metadata:",
		"Duration:",
		"Stream #",
		"frame=",
		"size=",
		"video:",
	}
	libVersionRe = regexp.MustCompile(`^lib\w+\s+\d+\.`)
	progressRe   = regexp.MustCompile(`\btime=\S+\s+bitrate=`)
)

func isNoise(line string) bool {
	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return libVersionRe.MatchString(line) || progressRe.MatchString(line)
}

var failureKeywords = []string{
	"error",
	"invalid",
	"failed",
	"unable to",
	"no such file",
	"permission denied",
	"could not",
	"does not contain",
}

func failureLines(lines []string) []string {
	var msgs []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, keyword := range failureKeywords {
			if strings.Contains(lower, keyword) {
				msgs = append(msgs, stripComponentTag(line))
				break
			}
		}
		if len(msgs) == 3 {
			break
		}
	}
	return msgs
}

var signatures = []struct {
	pattern *regexp.Regexp
	message string
}{
	{
		pattern: regexp.MustCompile(`not divisible by (\d+)`),
		message: "output dimensions are not divisible by 2; the codec requires even width and height",
	},
	{
		pattern: regexp.MustCompile(`moov atom not found`),
		message: "input does not look like a valid media file (missing moov atom)",
	},
	{
		pattern: regexp.MustCompile(`Unknown encoder '([^']+)'`),
		message: "the requested encoder is not available in this ffmpeg build",
	},
}

func knownSignature(lines []string) string {
	for _, line := range lines {
		for _, sig := range signatures {
			if sig.pattern.MatchString(line) {
				return sig.message
			}
		}
	}
	return ""
}

// componentTagRe matches ffmpeg's leading "[libx264 @ 0x...]" component tag.
var componentTagRe = regexp.MustCompile(`^\[[^\]]+\]\s*`)

func stripComponentTag(line string) string {
	return componentTagRe.ReplaceAllString(line, "")
}
