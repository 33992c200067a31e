package proto

import "strings"

// ListSeparator joins names in PlayerList and GetServers replies. It is not
// escaped: a name containing ", " splits into two entries.
const ListSeparator = ", "

// SplitList recovers the names from a joined list field. An empty field is an
// empty list, not a list holding one empty name.
func SplitList(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ListSeparator)
}

func JoinList(names []string) string {
	return strings.Join(names, ListSeparator)
}
