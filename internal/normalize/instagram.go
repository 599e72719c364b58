package normalize

import (
	"regexp"
	"strings"
)

var (
	instagramURLPattern = regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9._]+)`)
	bioPrefixPattern    = regexp.MustCompile(`(?i)(?:ig|insta|instagram)[\s:]*@?([a-zA-Z0-9._]+)`)
	bioMentionPattern   = regexp.MustCompile(`(?i)(?:ig|insta|instagram)[\s:]*@([a-zA-Z0-9._]+)`)
	bioEmojiPattern     = regexp.MustCompile(`(?:📷|📸|💌)\s*@?([a-zA-Z0-9._]{3,30})`)
)

// Words that follow "IG"/"insta" in bios without being usernames.
var bioStopWords = map[string]bool{
	"follow": true,
	"me":     true,
	"on":     true,
	"for":    true,
	"more":   true,
}

// Instagram system paths that look like handles in URLs but are not.
var instagramSystemPaths = map[string]bool{
	"p":        true,
	"reel":     true,
	"tv":       true,
	"stories":  true,
	"explore":  true,
	"accounts": true,
	"direct":   true,
}

// HandleFromBio extracts an Instagram handle from free-form bio text. It
// tries, in order: an embedded instagram.com URL, an "IG:"/"insta" prefix,
// an explicit @-mention after such a prefix, and a camera-emoji mention.
// Returns the handle without the @ sign, or "" when nothing matches.
func HandleFromBio(bio string) string {
	if bio == "" {
		return ""
	}

	if m := instagramURLPattern.FindStringSubmatch(bio); m != nil {
		return m[1]
	}

	if m := bioPrefixPattern.FindStringSubmatch(bio); m != nil {
		if !bioStopWords[strings.ToLower(m[1])] {
			return m[1]
		}
	}

	if m := bioMentionPattern.FindStringSubmatch(bio); m != nil {
		return m[1]
	}

	lower := strings.ToLower(bio)
	if strings.Contains(lower, "ig") || strings.Contains(lower, "insta") {
		if m := bioEmojiPattern.FindStringSubmatch(bio); m != nil {
			return m[1]
		}
	}
	return ""
}

// HandleFromURL extracts the profile handle from an Instagram URL, rejecting
// system paths like /p/ and /explore/.
func HandleFromURL(url string) string {
	if url == "" {
		return ""
	}
	m := instagramURLPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	handle := strings.TrimRight(m[1], "/")
	if instagramSystemPaths[strings.ToLower(handle)] {
		return ""
	}
	return handle
}
