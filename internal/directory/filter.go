package directory

import (
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// FindByNamesFilter returns the filter template matching n group names.
//
//	0 names: the find-all filter
//	1 name:  the find-one filter
//	n names: (&<find-all>(|(<name>={0})...(<name>={n-1})))
func (s Settings) FindByNamesFilter(n int) string {
	switch {
	case n <= 0:
		return s.GroupFindAllFilter
	case n == 1:
		return s.GroupFindOneFilter
	}
	var b strings.Builder
	b.WriteString("(&")
	b.WriteString(s.GroupFindAllFilter)
	b.WriteString("(|")
	for i := 0; i < n; i++ {
		b.WriteString("(")
		b.WriteString(s.GroupNameAttribute)
		b.WriteString("={")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("})")
	}
	b.WriteString("))")
	return b.String()
}

// MemberContainsFilter returns the template matching groups with member {0}.
func (s Settings) MemberContainsFilter() string {
	return "(&" + s.GroupFindAllFilter + "(" + s.GroupMemberAttribute + "={0}))"
}

// MemberValue returns the member attribute value that identifies user.
func (s Settings) MemberValue(user string) string {
	if !s.MemberDN {
		return user
	}
	dn := s.UserRDN + "=" + ldap.EscapeDN(user)
	if s.UserBaseDN != "" {
		dn += "," + s.UserBaseDN
	}
	return dn
}

// formatFilter substitutes {i} in template with the escaped values[i].
func formatFilter(template string, values ...string) string {
	if len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(values))
	for i, v := range values {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", ldap.EscapeFilter(v))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
