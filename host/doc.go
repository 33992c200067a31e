// Package host runs a bungee.Client inside a hosting server.
//
// Start binds the plugin-messaging channel through the server's Registrar,
// installs the client's inbound handler and, when configured, starts the
// pending-request expiry sweeper and the status/metrics HTTP server. Stop
// undoes all of it.
package host
