// Package proto implements the BungeeCord plugin-messaging wire format.
//
// Frames are sequences of big-endian fields written the way Java's
// DataOutputStream writes them: the first field is always a tag string naming
// the request or reply kind. Request and Reply are closed sets of variants, one
// per frame layout, so encode and decode are a switch on the tag.
package proto
