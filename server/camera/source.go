package camera

// FrameSource supplies frames at the configured resolution and rate.
// NextFrame returns io.EOF when the stream has ended. Any other error is a
// transient acquisition failure: the caller logs it and skips the frame,
// it is never swallowed here.
type FrameSource interface {
	NextFrame() (*Frame, error)
	Close() error
}
