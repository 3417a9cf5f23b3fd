// Package control registers compliance controls and runs them.
//
// A Control groups Describe blocks, each holding named examples:
//
//	c := control.New("gcloud", "gitlab url")
//	c.Describe("gitlab").It("is reachable", func(ctx context.Context) error {
//		...
//	})
//
// Examples report failure by returning an error.
package control

import "context"

// ExampleFunc is the body of a single assertion.
type ExampleFunc func(ctx context.Context) error

// Example is a single named assertion.
type Example struct {
	Name string
	Run  ExampleFunc
}

// Describe groups assertions about one subject.
type Describe struct {
	Subject  string
	Examples []Example
}

// It appends an assertion and returns d for chaining.
func (d *Describe) It(name string, fn ExampleFunc) *Describe {
	d.Examples = append(d.Examples, Example{Name: name, Run: fn})
	return d
}

// Control is a named, titled group of describe blocks.
type Control struct {
	ID        string
	Title     string
	Describes []*Describe
}

// New creates an empty control.
func New(id, title string) *Control {
	return &Control{ID: id, Title: title}
}

// Describe appends a describe block for subject and returns it.
func (c *Control) Describe(subject string) *Describe {
	d := &Describe{Subject: subject}
	c.Describes = append(c.Describes, d)
	return d
}
