package domain

// Signal is a strategy instruction naming the position action to take.
type Signal string

const (
	// SignalOpenLong opens a long position.
	SignalOpenLong Signal = "open_long"
	// SignalAddLong adds to an existing long position.
	SignalAddLong Signal = "add_long"
	// SignalOpenShort opens a short position.
	SignalOpenShort Signal = "open_short"
	// SignalAddShort adds to an existing short position.
	SignalAddShort Signal = "add_short"
	// SignalCloseLong closes a long position.
	SignalCloseLong Signal = "close_long"
	// SignalReduceLong reduces a long position.
	SignalReduceLong Signal = "reduce_long"
	// SignalCloseShort closes a short position.
	SignalCloseShort Signal = "close_short"
	// SignalReduceShort reduces a short position.
	SignalReduceShort Signal = "reduce_short"
)
