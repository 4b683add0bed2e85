package model

// Role of an access grant. Only owner is implemented; the value is kept
// open so read-only or editor roles can be added without a wire change.
type Role string

const RoleOwner Role = "owner"

// Share is one access grant inside a thoughtspace permission table, keyed
// in the table by the access token it was issued to. Created is set once
// at grant time; Accessed is refreshed on every successful authentication.
type Share struct {
	Role     Role   `json:"role"`
	Name     string `json:"name,omitempty"`
	Created  string `json:"created"`
	Accessed string `json:"accessed"`
}
