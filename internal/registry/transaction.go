// Package registry maps magics and file extensions to codec factories and
// drives the staged I/O transaction every read and write runs inside.
package registry

import (
	"github.com/rvltools/rkit/internal/debug"
	"github.com/rvltools/rkit/internal/rerr"
)

// Severity grades a transaction message.
type Severity int

const (
	Information Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Information:
		return "info"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Message is one line of codec feedback, tagged with the format domain
// that produced it (e.g. "bmd/shp1").
type Message struct {
	Severity Severity
	Domain   string
	Text     string
}

// State tracks a transaction through its staged protocol.
type State int

const (
	StateConfigure State = iota
	StateResolveDependencies
	StateRead
	StateWrite
	StateComplete
	StateFailure
)

// PropertyFunc supplies caller-provided configuration values during the
// Configure stage. Returning ok=false means "use the codec default".
type PropertyFunc func(key string) (value string, ok bool)

// ResolveFunc supplies the bytes of an external file a codec depends on.
type ResolveFunc func(name string) ([]byte, error)

// Transaction carries the per-operation state: collected messages, the
// caller's property and dependency callbacks, and the failure latch. The
// first Error message latches failure; no partial document escapes a
// failed read.
type Transaction struct {
	state     State
	messages  []Message
	onMessage func(Message)
	property  PropertyFunc
	resolve   ResolveFunc
	failed    bool
}

// NewTransaction builds a transaction in the Configure state.
func NewTransaction() *Transaction {
	return &Transaction{state: StateConfigure}
}

// SetMessageFunc installs a live message callback in addition to
// collection.
func (t *Transaction) SetMessageFunc(fn func(Message)) { t.onMessage = fn }

// SetPropertyFunc installs the Configure-stage property source.
func (t *Transaction) SetPropertyFunc(fn PropertyFunc) { t.property = fn }

// SetResolveFunc installs the dependency resolver.
func (t *Transaction) SetResolveFunc(fn ResolveFunc) { t.resolve = fn }

// State returns the current protocol state.
func (t *Transaction) State() State { return t.state }

// Failed reports whether an Error message has been recorded.
func (t *Transaction) Failed() bool { return t.failed }

// Messages returns all recorded messages in order.
func (t *Transaction) Messages() []Message { return t.messages }

// Warnings returns the recorded Warning messages.
func (t *Transaction) Warnings() []Message {
	var out []Message
	for _, m := range t.messages {
		if m.Severity == Warning {
			out = append(out, m)
		}
	}
	return out
}

// Report records one message. An Error severity latches the failure
// state.
func (t *Transaction) Report(sev Severity, domain, text string) {
	m := Message{Severity: sev, Domain: domain, Text: text}
	t.messages = append(t.messages, m)
	if t.onMessage != nil {
		t.onMessage(m)
	}
	debug.Logf(domain, "%s: %s", sev, text)
	if sev == Error {
		t.failed = true
		t.state = StateFailure
	}
}

// Property asks the caller for a Configure-stage value, falling back to
// def when the caller has no opinion.
func (t *Transaction) Property(key, def string) string {
	if t.property != nil {
		if v, ok := t.property(key); ok {
			return v
		}
	}
	return def
}

// Resolve fetches an external dependency by name. An unresolvable
// dependency fails the transaction.
func (t *Transaction) Resolve(name string) ([]byte, error) {
	if t.resolve == nil {
		err := &rerr.DependencyError{Name: name}
		t.Report(Error, "registry", err.Error())
		return nil, err
	}
	data, err := t.resolve(name)
	if err != nil {
		depErr := &rerr.DependencyError{Name: name}
		t.Report(Error, "registry", depErr.Error())
		return nil, depErr
	}
	return data, nil
}
