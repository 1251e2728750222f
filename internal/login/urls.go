package login

import "regexp"

// The platform bounces unauthenticated users through its own login
// pages and a hosted auth provider; any of these means "not signed in".
var loginURLPattern = regexp.MustCompile(`(?i)/login|sign[_-]?in|auth0\.com|auth\.`)

// Post-password interstitials that ask for a one-time code.
var challengeURLPattern = regexp.MustCompile(`(?i)mfa|challenge|verify`)

// IsLoginURL reports whether url is part of the login surface.
func IsLoginURL(url string) bool {
	return loginURLPattern.MatchString(url)
}

// IsChallengeURL reports whether url is a 2FA challenge page.
func IsChallengeURL(url string) bool {
	return challengeURLPattern.MatchString(url)
}
