package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByNamesFilter(t *testing.T) {
	s := DefaultSettings()

	tests := []struct {
		n    int
		want string
	}{
		{0, "(objectClass=group)"},
		{1, "(&(objectClass=group)(cn={0}))"},
		{2, "(&(objectClass=group)(|(cn={0})(cn={1})))"},
		{3, "(&(objectClass=group)(|(cn={0})(cn={1})(cn={2})))"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.FindByNamesFilter(tt.n))
	}
}

func TestMemberContainsFilter(t *testing.T) {
	assert.Equal(t, "(&(objectClass=group)(member={0}))", DefaultSettings().MemberContainsFilter())
}

func TestFormatFilter(t *testing.T) {
	got := formatFilter("(&(objectClass=group)(|(cn={0})(cn={1})))", "dev", "ops*")
	assert.Equal(t, `(&(objectClass=group)(|(cn=dev)(cn=ops\2a)))`, got)

	assert.Equal(t, "(objectClass=group)", formatFilter("(objectClass=group)"))
}

func TestMemberValue(t *testing.T) {
	s := DefaultSettings()
	s.UserBaseDN = "cn=Users,dc=example,dc=org"
	assert.Equal(t, "cn=anna,cn=Users,dc=example,dc=org", s.MemberValue("anna"))
	assert.Equal(t, `cn=Smith\, Anna,cn=Users,dc=example,dc=org`, s.MemberValue("Smith, Anna"))
	assert.Equal(t, `cn=a\00b,cn=Users,dc=example,dc=org`, s.MemberValue("a\x00b"))
	assert.Equal(t, `cn=\#admins\ ,cn=Users,dc=example,dc=org`, s.MemberValue("#admins "))

	s.MemberDN = false
	assert.Equal(t, "anna", s.MemberValue("anna"))
}

func TestRDNValue(t *testing.T) {
	v, ok := rdnValue(`cn=Smith\, Anna,cn=Users,dc=example,dc=org`, "CN")
	require.True(t, ok)
	assert.Equal(t, "Smith, Anna", v)

	_, ok = rdnValue("uid=anna,dc=example,dc=org", "cn")
	assert.False(t, ok)

	_, ok = rdnValue("not a dn", "cn")
	assert.False(t, ok)
}

func TestParseGeneralizedTime(t *testing.T) {
	got := parseGeneralizedTime("20191226154554.000Z")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2019, 12, 26, 15, 45, 54, 0, time.UTC), *got)

	assert.Nil(t, parseGeneralizedTime(""))
	assert.Nil(t, parseGeneralizedTime("2019"))
	assert.Nil(t, parseGeneralizedTime("2019xx26154554.0Z"))
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	assert.NoError(t, s.Validate(), "disabled settings are always valid")

	s.URL = "ldap://dc"
	assert.NoError(t, s.Validate())

	bad := s
	bad.GroupScope = "deep"
	assert.Error(t, bad.Validate())

	bad = s
	bad.GroupFindOneFilter = "(cn=fixed)"
	assert.Error(t, bad.Validate())

	bad = s
	bad.MemberNameAttribute = ""
	assert.Error(t, bad.Validate())
}

func TestSettings_IsIgnored(t *testing.T) {
	s := DefaultSettings()
	s.IgnoredGroups = []string{"Domain Users", "Domain Computers"}
	assert.True(t, s.IsIgnored("Domain Users"))
	assert.False(t, s.IsIgnored("developers"))
}
