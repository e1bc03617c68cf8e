package runner

import "strings"

// NoiseFilter drops known framework chatter from captured output.
type NoiseFilter struct {
	StderrBanners   []string `yaml:"stderr_banners"`   // matched case-sensitively
	StderrGeneric   []string `yaml:"stderr_generic"`   // matched case-insensitively
	StdoutGreetings []string `yaml:"stdout_greetings"` // matched case-sensitively
}

// Normalize filters and trims both streams of r. Succeeded is never
// touched, and normalizing a normalized result changes nothing.
func (f NoiseFilter) Normalize(r Result) Result {
	r.Stderr = filterLines(r.Stderr, f.dropStderr)
	r.Stdout = filterLines(r.Stdout, f.dropStdout)
	return r
}

func (f NoiseFilter) dropStderr(line string) bool {
	if containsAny(line, f.StderrBanners) {
		return true
	}
	lower := strings.ToLower(line)
	for _, s := range f.StderrGeneric {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (f NoiseFilter) dropStdout(line string) bool {
	return containsAny(line, f.StdoutGreetings)
}

func filterLines(s string, drop func(string) bool) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if drop(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
