package exec

import (
	"sync"
	"time"

	"github.com/isdmx/execbox/sandbox"
)

// DefaultCommandTimeout bounds invocations that do not specify a timeout.
const DefaultCommandTimeout = 10 * time.Second

// Request describes one command invocation. It is created per call and
// consumed once.
type Request struct {
	// Command is the program followed by its arguments. Must be non-empty.
	Command []string

	// Cwd is the working directory for the child process.
	Cwd string

	// Env is the full environment for the child process.
	Env map[string]string

	// Expiration bounds how long the command may run. The zero value is the
	// engine-wide default timeout.
	Expiration Expiration

	// Permissions is the invocation's sandbox permission request, passed
	// through to the policy compiler untouched.
	Permissions sandbox.Permissions

	// Justification optionally explains why the command needs to run.
	Justification string

	// Arg0 optionally overrides the child's argv[0].
	Arg0 string
}

type expirationKind int

const (
	expireDefault expirationKind = iota
	expireFixed
	expireCancel
)

// Expiration is the mechanism that terminates an invocation before it
// finishes naturally: a fixed duration, the engine default duration, or an
// externally triggered cancellation token.
type Expiration struct {
	kind  expirationKind
	d     time.Duration
	token *CancelToken
}

// FixedTimeout returns an expiration that fires after d.
func FixedTimeout(d time.Duration) Expiration {
	return Expiration{kind: expireFixed, d: d}
}

// DefaultExpiration returns an expiration that fires after the engine-wide
// default timeout.
func DefaultExpiration() Expiration {
	return Expiration{kind: expireDefault}
}

// WithCancel returns an expiration that fires when the token is cancelled.
// It carries no duration.
func WithCancel(token *CancelToken) Expiration {
	return Expiration{kind: expireCancel, token: token}
}

// TimeoutFromMillis converts an optional caller-supplied timeout into an
// expiration, falling back to the default when ms is nil.
func TimeoutFromMillis(ms *int64) Expiration {
	if ms == nil {
		return DefaultExpiration()
	}
	return FixedTimeout(time.Duration(*ms) * time.Millisecond)
}

// TimeoutMS returns the effective timeout in milliseconds for the duration
// based variants, and false for the cancellation variant.
func (e Expiration) TimeoutMS() (int64, bool) {
	switch e.kind {
	case expireFixed:
		return e.d.Milliseconds(), true
	case expireDefault:
		return DefaultCommandTimeout.Milliseconds(), true
	default:
		return 0, false
	}
}

// start arms the expiration and returns a channel that closes when it fires
// plus a release function for the duration-based variants.
func (e Expiration) start() (<-chan struct{}, func()) {
	if e.kind == expireCancel {
		return e.token.Done(), func() {}
	}
	d := e.d
	if e.kind == expireDefault {
		d = DefaultCommandTimeout
	}
	fired := make(chan struct{})
	stop := make(chan struct{})
	timer := time.NewTimer(d)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			close(fired)
		case <-stop:
		}
	}()
	var once sync.Once
	return fired, func() { once.Do(func() { close(stop) }) }
}

// CancelToken is an externally triggerable flag that expires an invocation.
// Cancel is idempotent and safe to call from any goroutine.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken creates an untriggered token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel triggers the token.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Done returns a channel that closes once the token is cancelled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
