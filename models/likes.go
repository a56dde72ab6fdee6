package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Likes maps a user id to true. Absence means not liked.
type Likes map[string]bool

// Has reports whether userID currently likes the post.
func (l Likes) Has(userID string) bool {
	return l[userID]
}

// Count returns the number of true entries.
func (l Likes) Count() int {
	n := 0
	for _, v := range l {
		if v {
			n++
		}
	}
	return n
}

// Toggle flips userID and reports whether the user likes the post afterwards.
func (l Likes) Toggle(userID string) bool {
	if l[userID] {
		delete(l, userID)
		return false
	}
	l[userID] = true
	return true
}

// Clone copies the map; a nil receiver yields an empty map.
func (l Likes) Clone() Likes {
	out := make(Likes, len(l))
	for k, v := range l {
		if v {
			out[k] = true
		}
	}
	return out
}

// Value stores the map as a JSON object.
func (l Likes) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]bool(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON object column.
func (l *Likes) Scan(src any) error {
	m := Likes{}
	if err := scanJSON(src, &m); err != nil {
		return err
	}
	*l = m
	return nil
}

// StringList is an ordered list of strings stored as a JSON array.
type StringList []string

// Contains reports whether s is present.
func (s StringList) Contains(v string) bool {
	for _, it := range s {
		if it == v {
			return true
		}
	}
	return false
}

// Value stores the list as a JSON array.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON array column.
func (s *StringList) Scan(src any) error {
	list := StringList{}
	if err := scanJSON(src, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
