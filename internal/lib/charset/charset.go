// Package charset converts strings between the application encoding (UTF-8)
// and the character set of the relational store.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

type Converter struct {
	name string
	enc  encoding.Encoding
}

// New returns a converter for the named storage charset. An empty name or
// any UTF-8 alias yields a pass-through converter.
func New(name string) (*Converter, error) {
	const op = "charset.New"

	if isUTF8(name) {
		return &Converter{name: "UTF-8"}, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%s: charset %q is not supported", op, name)
	}

	return &Converter{name: name, enc: enc}, nil
}

func MustNew(name string) *Converter {
	c, err := New(name)
	if err != nil {
		panic(err)
	}

	return c
}

func (c *Converter) Name() string {
	return c.name
}

// ToStorage converts an application string to the storage charset.
// Characters the charset cannot represent are replaced.
func (c *Converter) ToStorage(s string) string {
	if c == nil || c.enc == nil || s == "" {
		return s
	}

	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).String(s)
	if err != nil {
		return s
	}

	return out
}

// FromStorage converts a string read from storage to UTF-8.
func (c *Converter) FromStorage(s string) string {
	if c == nil || c.enc == nil || s == "" {
		return s
	}

	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return s
	}

	return out
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return true
	}

	return false
}
