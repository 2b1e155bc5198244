package model

import "time"

// CodeSpace is the durable row of a user-owned code snippet. Name and Code
// hold the last flushed values; the live values may sit in the cache.
type CodeSpace struct {
	ID        string    `json:"uuid" db:"id"`
	OwnerID   string    `json:"-" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CodeSpaceView is the API representation of a codespace. Ephemeral
// codespaces carry no timestamps; Mode is set when the codespace was reached
// through a share token.
type CodeSpaceView struct {
	ID        string     `json:"uuid"`
	Name      string     `json:"name,omitempty"`
	Code      string     `json:"code"`
	Ephemeral bool       `json:"ephemeral,omitempty"`
	Mode      AccessMode `json:"mode,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
