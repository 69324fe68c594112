package receipt

import (
	"net/url"
	"regexp"
	"strings"
)

// sensitiveFlags are flag names whose values are always redacted.
var sensitiveFlags = map[string]bool{
	"token":         true,
	"api-key":       true,
	"apikey":        true,
	"password":      true,
	"secret":        true,
	"pat":           true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"bearer":        true,
	"access-token":  true,
	"nuget-api-key": true,
}

// sensitivePrefixes indicate secrets regardless of the flag they came with.
var sensitivePrefixes = []string{
	"oy2",         // nuget.org API key
	"ghp_",        // GitHub PAT
	"github_pat_", // GitHub fine-grained PAT
	"AKIA",        // AWS access key
	"ya29.",       // Google OAuth
	"AIza",        // Google API key
}

// jwtRegex is a heuristic and may match other dotted strings.
var jwtRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)

// longSecretRegex matches 32+ chars of hex or base64 characters.
var longSecretRegex = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{32,}$`)

const redactedValue = "[REDACTED]"

// RedactArgs sanitizes CLI arguments. URLs keep their host but lose any
// userinfo password. Returns the redacted args and whether anything changed.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	out := make([]string, len(args))
	changed := false
	maskNext := false

	for i, arg := range args {
		var clean string
		switch {
		case maskNext:
			clean, maskNext = redactedValue, false
		case strings.HasPrefix(arg, "-"):
			name, value, hasValue := strings.Cut(arg, "=")
			flag := strings.ToLower(strings.TrimLeft(name, "-"))
			switch {
			case !hasValue:
				clean = arg
				maskNext = sensitiveFlags[flag]
			case sensitiveFlags[flag]:
				clean = name + "=" + redactedValue
			default:
				clean = name + "=" + redactValue(value)
			}
		default:
			clean = redactValue(arg)
		}

		out[i] = clean
		changed = changed || clean != arg
	}

	return out, changed
}

// redactValue masks a value that looks like a secret and the password of
// a URL
func redactValue(v string) string {
	if isSensitiveValue(v) {
		return redactedValue
	}
	if clean, ok := redactURL(v); ok {
		return clean
	}
	return v
}

func isSensitiveValue(value string) bool {
	for _, prefix := range sensitivePrefixes {
		if strings.HasPrefix(value, prefix) && len(value) >= len(prefix)+16 {
			return true
		}
	}

	if jwtRegex.MatchString(value) {
		return true
	}

	// paths and URLs are never treated as opaque secrets
	if len(value) >= 32 && !strings.ContainsAny(value, "/.") {
		return longSecretRegex.MatchString(value)
	}

	return false
}

// redactURL masks the password of a URL with userinfo
func redactURL(value string) (string, bool) {
	if !strings.Contains(value, "://") || !strings.Contains(value, "@") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.User == nil {
		return "", false
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return "", false
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String(), true
}
