// Package directory projects groups of an LDAP directory as read-only
// DIRECTORY groups.
package directory

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Settings describes where groups live in the directory and how their entries
// are mapped.
type Settings struct {
	URL                string
	BindDN             string
	BindPassword       string
	StartTLS           bool
	InsecureSkipVerify bool
	Timeout            time.Duration

	GroupBaseDN               string
	GroupScope                string // one, sub or base
	GroupFindAllFilter        string
	GroupFindOneFilter        string // {0} is the group name
	GroupNameAttribute        string
	GroupDescriptionAttribute string
	GroupMemberAttribute      string

	// MemberDN reports whether member attribute values are DNs.
	MemberDN            bool
	MemberNameAttribute string
	UserBaseDN          string
	UserRDN             string

	AdminName     string
	IgnoredGroups []string
}

// DefaultSettings returns settings for an Active Directory style domain controller.
func DefaultSettings() Settings {
	return Settings{
		Timeout:                   10 * time.Second,
		GroupScope:                "one",
		GroupFindAllFilter:        "(objectClass=group)",
		GroupFindOneFilter:        "(&(objectClass=group)(cn={0}))",
		GroupNameAttribute:        "cn",
		GroupDescriptionAttribute: "description",
		GroupMemberAttribute:      "member",
		MemberDN:                  true,
		MemberNameAttribute:       "cn",
		UserRDN:                   "cn",
		AdminName:                 "Administrator",
	}
}

// Enabled reports whether a directory URL is configured.
func (s Settings) Enabled() bool {
	return s.URL != ""
}

// Validate checks the settings needed to run searches.
func (s Settings) Validate() error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.scope(); err != nil {
		return err
	}
	if s.GroupFindAllFilter == "" || s.GroupFindOneFilter == "" {
		return fmt.Errorf("directory group filters must not be empty")
	}
	if !strings.Contains(s.GroupFindOneFilter, "{0}") {
		return fmt.Errorf("directory find-one filter %q has no {0} placeholder", s.GroupFindOneFilter)
	}
	if s.GroupNameAttribute == "" || s.GroupMemberAttribute == "" {
		return fmt.Errorf("directory group name and member attributes are required")
	}
	if s.MemberDN && s.MemberNameAttribute == "" {
		return fmt.Errorf("directory member name attribute is required when members are DNs")
	}
	return nil
}

// IsIgnored reports whether name is excluded from every result.
func (s Settings) IsIgnored(name string) bool {
	return slices.Contains(s.IgnoredGroups, name)
}

func (s Settings) scope() (int, error) {
	switch strings.ToLower(s.GroupScope) {
	case "", "one", "onelevel":
		return ldap.ScopeSingleLevel, nil
	case "sub", "subtree":
		return ldap.ScopeWholeSubtree, nil
	case "base":
		return ldap.ScopeBaseObject, nil
	default:
		return 0, fmt.Errorf("invalid directory group scope %q: must be one, sub or base", s.GroupScope)
	}
}
