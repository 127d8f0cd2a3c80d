package domain

import "encoding/json"

// Identity is the logged-in user as returned by the session endpoints.
// It is read-only shared state: controllers consume it to decide message
// ownership but never mutate it.
type Identity struct {
	UserID int64
	Name   string
	Email  string
}

// UnmarshalJSON accepts both "id" and "userId" as the identifier key.
// The backend uses "id" on login and "userId" on token validation.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     *int64 `json:"id"`
		UserID *int64 `json:"userId"`
		Name   string `json:"name"`
		Email  string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.UserID != nil:
		i.UserID = *raw.UserID
	case raw.ID != nil:
		i.UserID = *raw.ID
	}
	i.Name = raw.Name
	i.Email = raw.Email
	return nil
}
