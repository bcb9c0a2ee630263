package collab

import (
	"encoding/json"
	"fmt"
)

// Permission is a collaborator's capability on a note, ordered by
// increasing capability. Comparisons use the ordinal, never the string
// form.
type Permission int

const (
	PermissionView Permission = iota
	PermissionComment
	PermissionEdit
)

var permissionNames = map[Permission]string{
	PermissionView:    "view",
	PermissionComment: "comment",
	PermissionEdit:    "edit",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("permission(%d)", int(p))
}

// AtLeast reports whether p grants everything min grants.
func (p Permission) AtLeast(min Permission) bool {
	return p >= min
}

func ParsePermission(s string) (Permission, error) {
	switch s {
	case "view":
		return PermissionView, nil
	case "comment":
		return PermissionComment, nil
	case "edit":
		return PermissionEdit, nil
	}
	return PermissionView, fmt.Errorf("unknown permission level %q", s)
}

func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePermission(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
