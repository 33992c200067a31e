// Package registry correlates inbound reply frames with the requests that
// expect them.
//
// The wire format has no request ids, so a pending request is described by the
// reply tag it waits for plus, for some kinds, the key the proxy echoes back
// (the server or player name that was asked about). Each inbound frame fires at
// most one matcher, and a matcher fires at most once: it is removed under the
// registry lock before its continuation runs.
//
// Two structurally identical requests in flight at once are indistinguishable
// on the wire. The oldest matcher claims the first reply; callers that need a
// strict pairing must not overlap identical requests.
package registry
