package domain

import "slices"

// IDSet is a set of user ids that remembers insertion order.
type IDSet struct {
	ids []UserID
}

func NewIDSet(ids ...UserID) IDSet {
	var s IDSet
	for _, id := range ids {
		s.Add(id)
	}

	return s
}

func (s *IDSet) Add(id UserID) bool {
	if s.Contains(id) {
		return false
	}

	s.ids = append(s.ids, id)
	return true
}

func (s *IDSet) Remove(id UserID) bool {
	i := slices.Index(s.ids, id)
	if i < 0 {
		return false
	}

	s.ids = slices.Delete(s.ids, i, i+1)
	return true
}

func (s IDSet) Contains(id UserID) bool {
	return slices.Contains(s.ids, id)
}

func (s IDSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy in insertion order.
func (s IDSet) IDs() []UserID {
	ids := make([]UserID, len(s.ids))
	copy(ids, s.ids)
	return ids
}

func (s IDSet) clone() IDSet {
	return IDSet{ids: s.IDs()}
}
