package logpipe

// Driver is the backend that consumes drained records.
//
// Open is called once when a pipeline is created and Close once when it is
// closed, or after a failed Open. Process is only ever called by the
// goroutine draining the pipeline; the record is reused after Process
// returns and must not be retained.
type Driver interface {
	Open() error
	Process(rec *Record) error
	Close() error
}

// Discard drops every record.
type Discard struct{}

// NewDiscard returns a driver that drops every record.
func NewDiscard() *Discard { return &Discard{} }

func (*Discard) Open() error               { return nil }
func (*Discard) Process(rec *Record) error { return nil }
func (*Discard) Close() error              { return nil }
