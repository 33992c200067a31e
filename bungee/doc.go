// Package bungee is a client for the BungeeCord plugin-messaging channel, as
// seen from a backend server behind the proxy.
//
// A Client is created by the hosting application, bound to the channel at
// startup and released at shutdown. Operations are either fire-and-forget
// (ConnectPlayer, SendMessage, ForwardToServer, ...) or request/reply (IP,
// PlayerCount, ServerList, ...). Request/reply calls never block: they send the
// request, leave a pending matcher behind, and the caller's handler runs later
// on whichever goroutine feeds the reply into HandleFrame.
//
// The proxy's replies carry no request id. They are paired by tag and, where
// the reply echoes it, by the server or player name that was asked about. Two
// identical requests in flight at once may receive each other's replies.
// Pending requests do not time out unless the host runs an expiry sweep; use
// Cancel to drop one explicitly.
package bungee
