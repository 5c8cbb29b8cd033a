package sso

import "net/url"

// BuildInitiatorURL constructs the SP session-initiator URL. loginURL is the
// canonical post-login landing location (the gateway's login entry point);
// when redirectTo is non-empty it is embedded as a redirect_to parameter so
// the user lands back where they asked to go.
//
// The combined return target is percent-encoded exactly once. The SP decodes
// the target parameter once when it bounces the browser back, which restores
// the inner URL byte for byte; encoding it a second time (or not at all)
// breaks that round trip.
func BuildInitiatorURL(settings Settings, loginURL, redirectTo string) string {
	returnTo := loginURL
	if redirectTo != "" {
		returnTo += "?redirect_to=" + redirectTo
	}
	return settings.SessionInitURL + "?target=" + url.QueryEscape(returnTo)
}
