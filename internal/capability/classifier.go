// Package capability decides whether a recipient's mail client can render
// interactive (AMP) email, based on the domain of the address.
package capability

import (
	"sort"
	"strings"
)

// Rendering is the capability of a recipient's mail client.
type Rendering string

// Rendering values.
const (
	Interactive Rendering = "interactive"
	Static      Rendering = "static"
)

// DefaultDomains are the mail providers known to render AMP for email.
var DefaultDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"yahoo.co.uk",
	"yahoo.ca",
	"yahoo.co.jp",
	"mail.ru",
}

// Classifier is an immutable domain allow-list. Safe for concurrent use.
type Classifier struct {
	domains map[string]struct{}
}

// New creates a Classifier for the default domains plus any extra ones.
func New(extra ...string) *Classifier {
	c := &Classifier{domains: make(map[string]struct{}, len(DefaultDomains)+len(extra))}
	for _, d := range DefaultDomains {
		c.domains[d] = struct{}{}
	}
	for _, d := range extra {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			c.domains[d] = struct{}{}
		}
	}
	return c
}

// Classify returns Interactive iff the domain after the final "@" is on the allow-list.
// Addresses without "@" are Static.
func (c *Classifier) Classify(address string) Rendering {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return Static
	}
	domain := strings.ToLower(strings.TrimSpace(address[at+1:]))
	if _, ok := c.domains[domain]; ok {
		return Interactive
	}
	return Static
}

// Domains returns the allow-list in sorted order.
func (c *Classifier) Domains() []string {
	out := make([]string, 0, len(c.domains))
	for d := range c.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

var defaultClassifier = New()

// Classify classifies address against DefaultDomains.
func Classify(address string) Rendering {
	return defaultClassifier.Classify(address)
}
