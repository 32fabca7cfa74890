package luaruntime

// Sink receives one formatted line per script print statement.
type Sink interface {
	// Print is called once per script print, with the tab-joined,
	// tostring-converted arguments and no trailing newline.
	Print(line string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(line string)

func (f SinkFunc) Print(line string) { f(line) }
