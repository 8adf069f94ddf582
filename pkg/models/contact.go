package models

import "slices"

// Contact is the marketing view of a storefront customer. Tags and
// attributes are read and written by contact-mutating steps.
type Contact struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// HasTag reports whether the contact carries the given tag.
func (c *Contact) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// AddTag appends the tag; adding an existing tag is a no-op.
func (c *Contact) AddTag(tag string) {
	if !c.HasTag(tag) {
		c.Tags = append(c.Tags, tag)
	}
}

// RemoveTag deletes the tag; removing a missing tag is a no-op.
func (c *Contact) RemoveTag(tag string) {
	c.Tags = slices.DeleteFunc(c.Tags, func(t string) bool { return t == tag })
}
