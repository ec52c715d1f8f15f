package rbac

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Role represents a named bundle of permissions assigned to a user.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// PermissionSet is an immutable set of granted permissions. The zero value
// is the empty set.
type PermissionSet struct {
	perms map[string]struct{}
}

// NewPermissionSet builds a set from perms. Surrounding whitespace is
// trimmed, empty entries are dropped and duplicates collapse.
func NewPermissionSet(perms ...string) PermissionSet {
	set := PermissionSet{perms: make(map[string]struct{}, len(perms))}
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		set.perms[p] = struct{}{}
	}
	return set
}

// Has reports whether p was granted explicitly.
func (s PermissionSet) Has(p string) bool {
	_, ok := s.perms[p]
	return ok
}

// Wildcard reports whether the set grants every permission.
func (s PermissionSet) Wildcard() bool {
	return s.Has(shared.PermAll)
}

// Grants is the single authorization predicate: an empty requirement is
// always satisfied and an identifier outside the catalog never is, even
// for the wildcard. Otherwise the wildcard or the exact identifier must be
// present.
func (s PermissionSet) Grants(required string) bool {
	if required == "" {
		return true
	}
	if !shared.IsKnownPermission(required) {
		return false
	}
	return s.Wildcard() || s.Has(required)
}

// GrantsAny reports whether at least one of required is granted. An empty
// list is satisfied.
func (s PermissionSet) GrantsAny(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if s.Grants(r) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct permissions.
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// Slice returns the permissions sorted alphabetically.
func (s PermissionSet) Slice() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of permissions.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}

// PermissionSet returns the role's permissions as a set. A nil role yields
// the empty set.
func (r *Role) PermissionSet() PermissionSet {
	if r == nil {
		return PermissionSet{}
	}
	return NewPermissionSet(r.Permissions...)
}
