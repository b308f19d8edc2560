package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type UserID int64

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseUserID(raw string) (UserID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user id %q: %w", raw, err)
	}

	return UserID(value), nil
}

type User struct {
	ID          UserID
	DisplayName string
}

// Label is the name shown to other users; unnamed users fall back to their id.
func (u User) Label() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}

	return fmt.Sprintf("User %s", u.ID)
}
