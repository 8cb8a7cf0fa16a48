package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Session is a bound directory connection able to run searches.
type Session interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// Dialer opens sessions against the directory.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }

// LDAPDialer dials, optionally upgrades with StartTLS, and binds.
type LDAPDialer struct {
	settings Settings
}

// NewLDAPDialer creates a dialer for settings.
func NewLDAPDialer(settings Settings) *LDAPDialer {
	return &LDAPDialer{settings: settings}
}

// Dial opens and binds a new connection.
func (d *LDAPDialer) Dial(ctx context.Context) (Session, error) {
	s := d.settings
	tlsConfig := &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify} //nolint:gosec // opt-in for test directories

	type dialResult struct {
		conn *ldap.Conn
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		conn, err := ldap.DialURL(s.URL, d.dialOptions(tlsConfig)...)
		done <- dialResult{conn, err}
	}()

	var conn *ldap.Conn
	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("dial %s: %w", s.URL, r.err)
		}
		conn = r.conn
	}

	if s.Timeout > 0 {
		conn.SetTimeout(s.Timeout)
	}
	if s.StartTLS && !strings.HasPrefix(strings.ToLower(s.URL), "ldaps://") {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, fmt.Errorf("start tls: %w", err)
		}
	}
	if s.BindDN != "" {
		if err := conn.Bind(s.BindDN, s.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind as %s: %w", s.BindDN, err)
		}
	}
	return &ldapSession{conn: conn}, nil
}

// dialOptions bounds the TCP connect by the configured timeout so an
// abandoned dial does not wait for the OS connect timeout.
func (d *LDAPDialer) dialOptions(tlsConfig *tls.Config) []ldap.DialOpt {
	opts := []ldap.DialOpt{ldap.DialWithTLSConfig(tlsConfig)}
	if d.settings.Timeout > 0 {
		opts = append(opts, ldap.DialWithDialer(&net.Dialer{Timeout: d.settings.Timeout}))
	}
	return opts
}

type ldapSession struct {
	conn *ldap.Conn
}

func (s *ldapSession) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return s.conn.Search(req)
}

func (s *ldapSession) Close() error {
	s.conn.Close()
	return nil
}
