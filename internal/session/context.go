// Package session carries the resolved tenant identity through every
// repository and service call. The tenant id is resolved once per request
// and passed explicitly; nothing in the data layer reads ambient globals.
package session

// Source names where a tenant id came from, for diagnostics.
type Source string

const (
	SourceLicense  Source = "license"
	SourceCache    Source = "cache"
	SourceProfile  Source = "profile"
	SourceDemo     Source = "demo"
	SourceFallback Source = "fallback"
)

// Context is the resolved session identity for one request or one
// long-lived subscription.
type Context struct {
	TenantID      string
	UserID        string
	Source        Source
	Authenticated bool
}

// Demo builds a session for the demo tenant
func Demo(tenantID string) Context {
	return Context{TenantID: tenantID, Source: SourceDemo}
}
