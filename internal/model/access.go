package model

// AccessMode is the permission a share token grants.
type AccessMode string

const (
	AccessEdit     AccessMode = "edit"
	AccessViewOnly AccessMode = "view_only"
)

// AccessModes lists every valid mode.
var AccessModes = []AccessMode{AccessEdit, AccessViewOnly}

// Valid reports whether m is one of the defined modes.
func (m AccessMode) Valid() bool {
	switch m {
	case AccessEdit, AccessViewOnly:
		return true
	}
	return false
}

// CanEdit reports whether m allows writing code.
func (m AccessMode) CanEdit() bool {
	return m == AccessEdit
}

// ShareTokenRequest asks for a share token for one codespace.
type ShareTokenRequest struct {
	CodeSpaceID string     `json:"codespace_uuid"`
	ExpireTime  int64      `json:"expire_time"` // seconds from now
	Mode        AccessMode `json:"mode"`
}

// ShareTokenResponse echoes the request together with the issued token.
type ShareTokenResponse struct {
	ShareTokenRequest
	Token string `json:"token"`
}
