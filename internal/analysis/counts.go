package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// Counts maps defect labels to non-negative counts and remembers the order
// in which labels were first recorded. The zero value is an empty mapping.
type Counts struct {
	order  []string
	values map[string]int
}

// Get returns the count for label and whether the label is present.
func (c *Counts) Get(label string) (int, bool) {
	n, ok := c.values[label]
	return n, ok
}

// Set records n for label, clamped at zero. New labels are appended.
func (c *Counts) Set(label string, n int) int {
	if c.values == nil {
		c.values = make(map[string]int)
	}
	if _, ok := c.values[label]; !ok {
		c.order = append(c.order, label)
	}
	c.values[label] = max(n, 0)
	return c.values[label]
}

// Add applies delta to label, treating an absent label as zero.
func (c *Counts) Add(label string, delta int) int {
	n, _ := c.Get(label)
	return c.Set(label, n+delta)
}

// Labels returns the labels in insertion order.
func (c *Counts) Labels() []string {
	return slices.Clone(c.order)
}

// Len returns the number of labels, including explicit zeros.
func (c *Counts) Len() int {
	return len(c.order)
}

// Total is the sum of all counts.
func (c *Counts) Total() int {
	total := 0
	for _, n := range c.values {
		total += n
	}
	return total
}

// All iterates labels and counts in insertion order.
func (c *Counts) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, label := range c.order {
			if !yield(label, c.values[label]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := Counts{order: slices.Clone(c.order)}
	if c.values != nil {
		out.values = make(map[string]int, len(c.values))
		for k, v := range c.values {
			out.values[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", c.values[label])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Null decodes to
// an empty mapping. Negative counts are clamped to zero.
func (c *Counts) UnmarshalJSON(data []byte) error {
	*c = Counts{}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("counts: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("counts: expected label, got %v", tok)
		}

		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("counts: label %q: %w", label, err)
		}
		n, err := num.Int64()
		if err != nil {
			return fmt.Errorf("counts: label %q: count must be an integer", label)
		}
		c.Set(label, int(n))
	}

	_, err = dec.Token()
	return err
}
