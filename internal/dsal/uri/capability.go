package uri

// ProviderType identifies a backend kind. Unique within an AccessMethod;
// the same identifier may exist under both bb and mcp.
type ProviderType string

const (
	ProviderFilesystem ProviderType = "filesystem"
	ProviderNotion     ProviderType = "notion"
	ProviderGoogleDocs ProviderType = "googledocs"
)

// Coarse capabilities — the primary operation-shaped capability set.
type Coarse string

const (
	CoarseRead       Coarse = "read"
	CoarseWrite      Coarse = "write"
	CoarseList       Coarse = "list"
	CoarseSearch     Coarse = "search"
	CoarseMove       Coarse = "move"
	CoarseDelete     Coarse = "delete"
	CoarseBlockRead  Coarse = "blockRead"
	CoarseBlockEdit  Coarse = "blockEdit"
)

// Load capabilities — representations an accessor can return on load.
type Load string

const (
	LoadPlainText Load = "plainText"
	LoadStructured Load = "structured"
	LoadBoth      Load = "both"
)

// Edit capabilities — operation classes an accessor's editResource supports.
type Edit string

const (
	EditSearchReplace     Edit = "searchReplaceOperations"
	EditRange             Edit = "rangeOperations"
	EditBlock             Edit = "blockOperations"
	EditTextFormatting    Edit = "textFormatting"
	EditParagraphFormat   Edit = "paragraphFormatting"
	EditTables            Edit = "tables"
	EditColors            Edit = "colors"
	EditFonts             Edit = "fonts"
)

// Search capabilities — query styles an accessor's searchResources accepts.
type Search string

const (
	SearchText            Search = "textSearch"
	SearchRegex           Search = "regexSearch"
	SearchStructuredQuery Search = "structuredQuerySearch"
)

// Capabilities is the full set of capabilities a Provider advertises,
// one (possibly empty) subset per disjoint enumeration.
type Capabilities struct {
	Coarse []Coarse
	Load   []Load
	Edit   []Edit
	Search []Search
}

func containsCoarse(set []Coarse, v Coarse) bool {
	for _, c := range set {
		if c == v {
			return true
		}
	}
	return false
}

func containsLoad(set []Load, v Load) bool {
	for _, c := range set {
		if c == v {
			return true
		}
	}
	return false
}

func containsEdit(set []Edit, v Edit) bool {
	for _, c := range set {
		if c == v {
			return true
		}
	}
	return false
}

func containsSearch(set []Search, v Search) bool {
	for _, c := range set {
		if c == v {
			return true
		}
	}
	return false
}

// HasCoarse, HasLoad, HasEdit, HasSearch test membership in the respective
// enumeration. These back Provider/Accessor.hasCapability (testable
// property §8.2).
func (c Capabilities) HasCoarse(v Coarse) bool   { return containsCoarse(c.Coarse, v) }
func (c Capabilities) HasLoad(v Load) bool        { return containsLoad(c.Load, v) }
func (c Capabilities) HasEdit(v Edit) bool         { return containsEdit(c.Edit, v) }
func (c Capabilities) HasSearch(v Search) bool     { return containsSearch(c.Search, v) }

// AuthMethod is the tagged-union discriminator for auth records (see
// package auth for the full variant payloads).
type AuthMethod string

const (
	AuthNone   AuthMethod = "none"
	AuthAPIKey AuthMethod = "apiKey"
	AuthBasic  AuthMethod = "basic"
	AuthBearer AuthMethod = "bearer"
	AuthOAuth2 AuthMethod = "oauth2"
	AuthCustom AuthMethod = "custom"
)
