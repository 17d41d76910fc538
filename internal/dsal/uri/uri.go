// Package uri implements the DSAL resource URI scheme:
//
//	<accessMethod>+<providerType>+<connectionName>://<resourcePath>
//
// This package holds no mutable state; every operation is a pure value
// transform over strings, as required by spec §4.1.
package uri

import (
	"strings"

	"github.com/rakunlabs/at/internal/dsalerr"
)

// AccessMethod is the fixed two-member enumeration of integration styles.
type AccessMethod string

const (
	BB  AccessMethod = "bb"
	MCP AccessMethod = "mcp"
)

func (a AccessMethod) Valid() bool {
	return a == BB || a == MCP
}

// Parsed holds the four components of a resource URI.
type Parsed struct {
	AccessMethod   AccessMethod
	ProviderType   string
	ConnectionName string
	ResourcePath   string
}

// Parse splits a fully-qualified resource URI into its components.
// Returns dsalerr.InvalidUri when the scheme prefix is malformed.
func Parse(u string) (Parsed, error) {
	schemeEnd := strings.Index(u, "://")
	if schemeEnd < 0 {
		return Parsed{}, dsalerr.New(dsalerr.InvalidUri, "missing :// separator in "+u)
	}

	scheme := u[:schemeEnd]
	path := u[schemeEnd+3:]

	parts := strings.SplitN(scheme, "+", 3)
	if len(parts) != 3 {
		return Parsed{}, dsalerr.New(dsalerr.InvalidUri, "scheme must be accessMethod+providerType+connectionName, got "+scheme)
	}

	am := AccessMethod(parts[0])
	if !am.Valid() {
		return Parsed{}, dsalerr.New(dsalerr.InvalidUri, "unknown access method "+parts[0])
	}
	if parts[1] == "" || parts[2] == "" {
		return Parsed{}, dsalerr.New(dsalerr.InvalidUri, "providerType and connectionName must be non-empty in "+scheme)
	}

	return Parsed{
		AccessMethod:   am,
		ProviderType:   parts[1],
		ConnectionName: parts[2],
		ResourcePath:   path,
	}, nil
}

// Construct builds a fully-qualified resource URI from its components.
func Construct(am AccessMethod, providerType, connectionName, resourcePath string) string {
	var b strings.Builder
	b.WriteString(string(am))
	b.WriteByte('+')
	b.WriteString(providerType)
	b.WriteByte('+')
	b.WriteString(connectionName)
	b.WriteString("://")
	b.WriteString(resourcePath)
	return b.String()
}

// Prefix returns the scheme prefix (including "://") for a connection.
func Prefix(am AccessMethod, providerType, connectionName string) string {
	return string(am) + "+" + providerType + "+" + connectionName + "://"
}

// HasPrefix reports whether u already starts with an "<accessMethod>+"
// scheme segment, i.e. it is already a fully-qualified resource URI rather
// than a bare resource path.
func HasPrefix(u string) bool {
	schemeEnd := strings.Index(u, "://")
	if schemeEnd < 0 {
		return false
	}
	first := u[:schemeEnd]
	plus := strings.Index(first, "+")
	if plus < 0 {
		return false
	}
	return AccessMethod(first[:plus]).Valid()
}

// ForResource returns path unchanged if it already carries a scheme prefix
// (HasPrefix); otherwise it constructs a fully-qualified URI for the given
// connection identity.
func ForResource(am AccessMethod, providerType, connectionName, path string) string {
	if HasPrefix(path) {
		return path
	}
	return Construct(am, providerType, connectionName, path)
}

// ResourcePathFor extracts the resourcePath of u if and only if u's scheme
// matches the given connection identity. Returns dsalerr.UriNotForConnection
// when the scheme identifies a different connection.
func ResourcePathFor(u string, am AccessMethod, providerType, connectionName string) (string, error) {
	p, err := Parse(u)
	if err != nil {
		return "", err
	}
	if p.AccessMethod != am || p.ProviderType != providerType || p.ConnectionName != connectionName {
		return "", dsalerr.New(dsalerr.UriNotForConnection, "uri "+u+" does not belong to "+Prefix(am, providerType, connectionName))
	}
	return p.ResourcePath, nil
}
