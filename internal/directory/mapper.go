package directory

import (
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"groupman/internal/domain"
)

const (
	attrWhenCreated = "whenCreated"
	attrWhenChanged = "whenChanged"

	generalizedTimeLayout = "20060102150405"
)

// memberResolver turns a member DN into a user name by reading the entry.
// ok is false when no such entry exists.
type memberResolver func(dn string) (name string, ok bool, err error)

// attributes lists the attributes a group search requests.
func (s Settings) attributes() []string {
	attrs := []string{s.GroupNameAttribute, s.GroupMemberAttribute, attrWhenCreated, attrWhenChanged}
	if s.GroupDescriptionAttribute != "" {
		attrs = append(attrs, s.GroupDescriptionAttribute)
	}
	return attrs
}

// mapEntry converts a group entry. The name attribute doubles as the id.
func (s Settings) mapEntry(e *ldap.Entry, resolve memberResolver) (domain.Group, error) {
	name := e.GetEqualFoldAttributeValue(s.GroupNameAttribute)
	g := domain.Group{
		ID:         name,
		Name:       name,
		CreatedBy:  s.AdminName,
		CreatedAt:  parseGeneralizedTime(e.GetEqualFoldAttributeValue(attrWhenCreated)),
		ModifiedAt: parseGeneralizedTime(e.GetEqualFoldAttributeValue(attrWhenChanged)),
		Source:     domain.SourceDirectory,
		Version:    domain.DirectoryVersion,
		Owners:     []string{s.AdminName},
	}
	if s.GroupDescriptionAttribute != "" {
		g.Description = e.GetEqualFoldAttributeValue(s.GroupDescriptionAttribute)
	}

	values := e.GetEqualFoldAttributeValues(s.GroupMemberAttribute)
	members := make([]string, 0, len(values))
	for _, v := range values {
		m, ok, err := s.memberName(v, resolve)
		if err != nil {
			return domain.Group{}, err
		}
		if ok {
			members = append(members, m)
		}
	}
	g.Members = members
	g.Normalize()
	return g, nil
}

// memberName decodes one member attribute value. When the configured member
// name attribute is the user RDN the name is read from the DN itself,
// otherwise the member entry is looked up.
func (s Settings) memberName(value string, resolve memberResolver) (string, bool, error) {
	if value == "" {
		return "", false, nil
	}
	if !s.MemberDN {
		return value, true, nil
	}
	if strings.EqualFold(s.MemberNameAttribute, s.UserRDN) {
		if name, ok := rdnValue(value, s.UserRDN); ok {
			return name, true, nil
		}
	}
	if resolve == nil {
		return "", false, nil
	}
	return resolve(value)
}

// rdnValue returns the value of the leading RDN of dn when its type is attr.
func rdnValue(dn, attr string) (string, bool) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return "", false
	}
	first := parsed.RDNs[0].Attributes[0]
	if !strings.EqualFold(first.Type, attr) {
		return "", false
	}
	return first.Value, true
}

// parseGeneralizedTime reads the yyyyMMddHHmmss prefix of an LDAP generalized
// time such as "20191226154554.0Z" as UTC.
func parseGeneralizedTime(v string) *time.Time {
	if len(v) < len(generalizedTimeLayout) {
		return nil
	}
	t, err := time.ParseInLocation(generalizedTimeLayout, v[:len(generalizedTimeLayout)], time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
