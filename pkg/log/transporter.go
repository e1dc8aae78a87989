package log

// Transporter is a log destination. pubspy ships a stdout/stderr transporter
// that renders JSON or text; the buffer fans every entry out to all of them.
type Transporter interface {
	Name() string

	// Write delivers one entry. A failed write is reported on stderr by the buffer.
	Write(entry Entry) error

	// Close flushes and releases the destination. Write is not called afterwards.
	Close() error
}
