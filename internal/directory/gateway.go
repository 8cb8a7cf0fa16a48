package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-ldap/ldap/v3"

	"groupman/internal/domain"
)

// Gateway reads groups from an LDAP directory. Each call opens its own
// session; searches are abandoned when ctx is done.
type Gateway struct {
	settings Settings
	dialer   Dialer
	logger   *slog.Logger
}

var _ domain.Directory = (*Gateway)(nil)

// NewGateway creates a gateway. settings must pass Validate.
func NewGateway(settings Settings, dialer Dialer, logger *slog.Logger) *Gateway {
	return &Gateway{
		settings: settings,
		dialer:   dialer,
		logger:   logger.With("component", "directory"),
	}
}

// FindAll returns every group matched by the find-all filter.
func (g *Gateway) FindAll(ctx context.Context) ([]domain.Group, error) {
	return g.searchGroups(ctx, g.settings.GroupFindAllFilter)
}

// FindByName returns the group called name or a NotFoundError.
func (g *Gateway) FindByName(ctx context.Context, name string) (*domain.Group, error) {
	if name == "" || g.settings.IsIgnored(name) {
		return nil, domain.ErrNotFound("directory group %q not found", name)
	}
	groups, err := g.searchGroups(ctx, formatFilter(g.settings.GroupFindOneFilter, name))
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, domain.ErrNotFound("directory group %q not found", name)
	}
	return &groups[0], nil
}

// FindByNames returns the groups whose names are in names. No names yields
// no groups without a search.
func (g *Gateway) FindByNames(ctx context.Context, names []string) ([]domain.Group, error) {
	names = domain.NormalizeSet(names)
	if len(names) == 0 {
		return []domain.Group{}, nil
	}
	return g.searchGroups(ctx, formatFilter(g.settings.FindByNamesFilter(len(names)), names...))
}

// FindByMemberContains returns the groups listing user as a member.
func (g *Gateway) FindByMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	if user == "" {
		return []domain.Group{}, nil
	}
	member := g.settings.MemberValue(user)
	g.logger.Debug("find groups by member", "member", member)
	return g.searchGroups(ctx, formatFilter(g.settings.MemberContainsFilter(), member))
}

// CountMembership counts the groups listing user as a member.
func (g *Gateway) CountMembership(ctx context.Context, user string) (int64, error) {
	groups, err := g.FindByMemberContains(ctx, user)
	if err != nil {
		return 0, err
	}
	return int64(len(groups)), nil
}

// Count returns the number of groups matched by the find-all filter.
func (g *Gateway) Count(ctx context.Context) (int64, error) {
	groups, err := g.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(groups)), nil
}

func (g *Gateway) searchGroups(ctx context.Context, filter string) ([]domain.Group, error) {
	scope, err := g.settings.scope()
	if err != nil {
		return nil, err
	}

	session, err := g.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close() //nolint:errcheck

	req := ldap.NewSearchRequest(
		g.settings.GroupBaseDN, scope, ldap.NeverDerefAliases, 0, 0, false,
		filter, g.settings.attributes(), nil,
	)
	res, err := search(ctx, session, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", filter, err)
	}

	resolve := g.lookupMember(ctx, session)
	groups := make([]domain.Group, 0, len(res.Entries))
	for _, e := range res.Entries {
		group, err := g.settings.mapEntry(e, resolve)
		if err != nil {
			return nil, err
		}
		if group.Name == "" || g.settings.IsIgnored(group.Name) {
			continue
		}
		groups = append(groups, group)
	}
	domain.SortGroups(groups)
	return groups, nil
}

// lookupMember reads the member name attribute of a member entry with an
// object-scope search on the same session.
func (g *Gateway) lookupMember(ctx context.Context, session Session) memberResolver {
	attr := g.settings.MemberNameAttribute
	return func(dn string) (string, bool, error) {
		req := ldap.NewSearchRequest(
			dn, ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, 0, false,
			"(objectClass=*)", []string{attr}, nil,
		)
		res, err := search(ctx, session, req)
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) || (err == nil && len(res.Entries) == 0) {
			g.logger.Warn("member not found", "member", dn)
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("get member %q: %w", dn, err)
		}
		name := res.Entries[0].GetEqualFoldAttributeValue(attr)
		return name, name != "", nil
	}
}

// search runs req on session and gives up when ctx is done. The caller's
// deferred Close interrupts the abandoned search.
func search(ctx context.Context, session Session, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	type searchResult struct {
		res *ldap.SearchResult
		err error
	}
	done := make(chan searchResult, 1)
	go func() {
		res, err := session.Search(req)
		done <- searchResult{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.res == nil {
			return &ldap.SearchResult{}, nil
		}
		return r.res, nil
	}
}
