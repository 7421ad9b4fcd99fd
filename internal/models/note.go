// Package models defines the domain types for Atlas.
package models

import (
	"path"
	"strings"
)

// Note is a vault note identified by its vault-relative path.
type Note struct {
	Path    string `json:"path"`
	Content string `json:"-"`
}

// Title returns the note's display name.
func (n Note) Title() string {
	return DisplayName(n.Path)
}

// Connection pairs a related note with its similarity score.
// Higher scores mean more closely related.
type Connection struct {
	Note  Note    `json:"note"`
	Score float64 `json:"score"`
}

// Similar is a ranked hit returned by the similarity catalog before its
// content has been read.
type Similar struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Value is a front matter value: either a plain string or an ordered list.
type Value struct {
	Text   string
	Items  []string
	IsList bool
}

// String returns the scalar form of v; lists are joined with ", ".
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.Items, ", ")
	}
	return v.Text
}

// List returns v as a list; a scalar becomes a one-item list.
func (v Value) List() []string {
	if v.IsList {
		return v.Items
	}
	if v.Text == "" {
		return nil
	}
	return []string{v.Text}
}

// FrontMatter is the key-value header parsed from the start of a note.
type FrontMatter map[string]Value

// Lookup returns the value for key and whether it was present.
func (fm FrontMatter) Lookup(key string) (Value, bool) {
	if fm == nil {
		return Value{}, false
	}
	v, ok := fm[key]
	return v, ok
}

// DisplayName returns the base filename of p without its .md extension.
// Both / and \ are treated as separators.
func DisplayName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimSuffix(path.Base(p), ".md")
}
