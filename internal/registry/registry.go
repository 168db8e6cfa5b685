package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	edlib "github.com/hbollon/go-edlib"

	"github.com/rvltools/rkit/internal/document"
)

// Codec couples a format matcher with its document factory, reader and
// writer. One codec instance is registered per supported format.
type Codec interface {
	// ID is the stable codec identifier, e.g. "bmd" or "szs".
	ID() string
	// Extensions lists the lowercase file extensions (without dot) the
	// codec claims.
	Extensions() []string
	// MatchesMagic reports whether the leading bytes identify this
	// format. Magic wins over extension during dispatch.
	MatchesMagic(data []byte) bool
	// NewDocument produces an empty document of the codec's type.
	NewDocument() document.Node
	// Read populates doc from data inside the transaction.
	Read(tx *Transaction, doc document.Node, data []byte) error
	// Write serializes doc inside the transaction.
	Write(tx *Transaction, doc document.Node) ([]byte, error)
}

// Configurer is implemented by codecs that participate in the Configure
// stage.
type Configurer interface {
	Configure(tx *Transaction) error
}

// DependencyScanner is implemented by codecs that announce external files
// during the ResolveDependencies stage.
type DependencyScanner interface {
	ResolveDependencies(tx *Transaction, data []byte) error
}

// Registry is an explicit value owning the codec set; there are no
// package-level singletons.
type Registry struct {
	codecs []Codec
	byID   map[string]Codec
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]Codec)}
}

// Register adds a codec. Later registrations never shadow earlier ones
// during magic dispatch; extension claims must be unique.
func (r *Registry) Register(c Codec) {
	r.codecs = append(r.codecs, c)
	r.byID[c.ID()] = c
}

// ByID returns the codec registered under id, or nil.
func (r *Registry) ByID(id string) Codec { return r.byID[id] }

// Codecs returns the registered codecs in registration order.
func (r *Registry) Codecs() []Codec { return r.codecs }

// Match selects the codec for a file: by magic first, then by extension.
func (r *Registry) Match(filename string, data []byte) (Codec, error) {
	for _, c := range r.codecs {
		if c.MatchesMagic(data) {
			return c, nil
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	var known []string
	for _, c := range r.codecs {
		for _, e := range c.Extensions() {
			if e == ext {
				return c, nil
			}
			known = append(known, e)
		}
	}
	if ext != "" && len(known) > 0 {
		if near, err := edlib.FuzzySearchThreshold(ext, known, 0.6, edlib.Levenshtein); err == nil && near != "" {
			return nil, fmt.Errorf("no codec for %q (unknown extension %q; did you mean %q?)", filename, ext, near)
		}
	}
	return nil, fmt.Errorf("no codec for %q: unrecognized magic and extension", filename)
}

// Result is a successful read: the populated document plus any warnings
// collected along the way.
type Result struct {
	Codec    Codec
	Document document.Node
	Warnings []Message
}

// ReadOption tweaks a registry-driven read.
type ReadOption func(*Transaction)

// WithMessageFunc streams messages to fn as they are reported.
func WithMessageFunc(fn func(Message)) ReadOption {
	return func(t *Transaction) { t.SetMessageFunc(fn) }
}

// WithPropertyFunc supplies Configure-stage properties.
func WithPropertyFunc(fn PropertyFunc) ReadOption {
	return func(t *Transaction) { t.SetPropertyFunc(fn) }
}

// WithResolveFunc supplies the dependency resolver.
func WithResolveFunc(fn ResolveFunc) ReadOption {
	return func(t *Transaction) { t.SetResolveFunc(fn) }
}

// Read dispatches a file through its codec and the staged transaction:
// Configure, then ResolveDependencies, then the body parse. The first
// Error fails the transaction and no document is returned.
func (r *Registry) Read(filename string, data []byte, opts ...ReadOption) (*Result, error) {
	codec, err := r.Match(filename, data)
	if err != nil {
		return nil, err
	}
	return r.ReadWith(codec, data, opts...)
}

// ReadWith runs the staged read with an explicit codec.
func (r *Registry) ReadWith(codec Codec, data []byte, opts ...ReadOption) (*Result, error) {
	tx := NewTransaction()
	for _, o := range opts {
		o(tx)
	}

	if cfg, ok := codec.(Configurer); ok {
		if err := cfg.Configure(tx); err != nil {
			tx.Report(Error, codec.ID(), err.Error())
		}
	}
	if tx.Failed() {
		return nil, failure(tx, codec)
	}

	tx.state = StateResolveDependencies
	if dep, ok := codec.(DependencyScanner); ok {
		if err := dep.ResolveDependencies(tx, data); err != nil && !tx.Failed() {
			tx.Report(Error, codec.ID(), err.Error())
		}
	}
	if tx.Failed() {
		return nil, failure(tx, codec)
	}

	tx.state = StateRead
	doc := codec.NewDocument()
	if err := codec.Read(tx, doc, data); err != nil && !tx.Failed() {
		tx.Report(Error, codec.ID(), err.Error())
	}
	if tx.Failed() {
		return nil, failure(tx, codec)
	}

	tx.state = StateComplete
	return &Result{Codec: codec, Document: doc, Warnings: tx.Warnings()}, nil
}

// Write serializes doc with the codec in a single-pass transaction.
func (r *Registry) Write(codec Codec, doc document.Node, opts ...ReadOption) ([]byte, []Message, error) {
	tx := NewTransaction()
	for _, o := range opts {
		o(tx)
	}
	tx.state = StateWrite

	out, err := codec.Write(tx, doc)
	if err != nil && !tx.Failed() {
		tx.Report(Error, codec.ID(), err.Error())
	}
	if tx.Failed() {
		return nil, tx.Messages(), failure(tx, codec)
	}
	tx.state = StateComplete
	return out, tx.Warnings(), nil
}

func failure(tx *Transaction, codec Codec) error {
	for _, m := range tx.Messages() {
		if m.Severity == Error {
			return fmt.Errorf("%s: %s: %s", codec.ID(), m.Domain, m.Text)
		}
	}
	return fmt.Errorf("%s: transaction failed", codec.ID())
}
