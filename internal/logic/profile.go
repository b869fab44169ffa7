package logic

import "regexp"

// ActiveProfile is the current front-end profile together with its whole-word
// pattern. The zero value is the state before any profile change has been seen
// and matches every configured key.
type ActiveProfile struct {
	Name    string
	pattern *regexp.Regexp
}

// NewActiveProfile compiles name into a whole-word pattern.
func NewActiveProfile(name string) ActiveProfile {
	return ActiveProfile{Name: name, pattern: wordPattern(name)}
}

// Matches reports whether a configured profile key applies to the active profile.
//
// The active profile pattern is tested against the key first, so a key listing
// several profiles ("morning evening") matches each of them. A key that names a
// word of a compound profile ("Night" in "Sunday-Night") matches as well.
func (a ActiveProfile) Matches(key string) bool {
	if a.pattern == nil {
		return true
	}
	if a.pattern.MatchString(key) {
		return true
	}
	return wordPattern(key).MatchString(a.Name)
}

// wordPattern compiles s as regular expression source between word boundaries.
// Source that does not compile is matched literally.
func wordPattern(s string) *regexp.Regexp {
	re, err := regexp.Compile(`\b` + s + `\b`)
	if err != nil {
		return regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b`)
	}
	return re
}

// ResolveDelay returns the delay in seconds for the active profile. The last
// matching key wins. If no key matches, base is returned and matched is false.
func ResolveDelay(active ActiveProfile, profiles []ProfileDelay, base float64) (delay float64, matched bool) {
	delay = base
	for _, p := range profiles {
		if active.Matches(p.Pattern) {
			delay = p.Seconds
			matched = true
		}
	}
	return delay, matched
}
