package status

// Data is the template model for the status page.
type Data struct {
	Channel    string
	Bound      bool
	Pending    int
	FramesIn   int64
	FramesOut  int64
	RunID      string
	ServerTime string

	// Message is printed after a blank line when set; the host puts its
	// most recent expiry sweep here.
	Message string
}
