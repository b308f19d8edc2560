package domain

import (
	"slices"
	"strings"
)

// Directory maps user ids to display names.
type Directory struct {
	names map[UserID]string
	order []UserID
}

func NewDirectory() *Directory {
	return &Directory{names: map[UserID]string{}}
}

// EnsureUser creates an unnamed record when id is unknown. The second return
// value reports whether a record was created.
func (d *Directory) EnsureUser(id UserID) (User, bool) {
	if name, ok := d.names[id]; ok {
		return User{ID: id, DisplayName: name}, false
	}

	d.names[id] = ""
	d.order = append(d.order, id)
	return User{ID: id}, true
}

// SetName reports whether the stored name changed.
func (d *Directory) SetName(id UserID, name string) (bool, error) {
	current, ok := d.names[id]
	if !ok {
		return false, userNotFound(id)
	}

	name = strings.TrimSpace(name)
	if current == name {
		return false, nil
	}

	d.names[id] = name
	return true, nil
}

func (d *Directory) User(id UserID) (User, error) {
	name, ok := d.names[id]
	if !ok {
		return User{}, userNotFound(id)
	}

	return User{ID: id, DisplayName: name}, nil
}

func (d *Directory) Has(id UserID) bool {
	_, ok := d.names[id]
	return ok
}

// Label never fails; unknown ids render like unnamed users.
func (d *Directory) Label(id UserID) string {
	return User{ID: id, DisplayName: d.names[id]}.Label()
}

func (d *Directory) Labels(ids []UserID) []string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, d.Label(id))
	}

	return labels
}

// Users returns every record in insertion order.
func (d *Directory) Users() []User {
	users := make([]User, 0, len(d.order))
	for _, id := range d.order {
		users = append(users, User{ID: id, DisplayName: d.names[id]})
	}

	return users
}

func (d *Directory) Len() int {
	return len(d.order)
}

// remove only drops the record. State.RemoveUser performs the cascade.
func (d *Directory) remove(id UserID) bool {
	if _, ok := d.names[id]; !ok {
		return false
	}

	delete(d.names, id)
	if i := slices.Index(d.order, id); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}

	return true
}
