package gredi

// Config carries the resolved DAM connection settings. Values come from the
// host application's config store; the client never reads ambient state.
type Config struct {
	// APIURL is the versioned REST base, e.g. "https://api4.materialbank.net/api/v1".
	APIURL string
	// CustomerPath is the tenant slug used for login and customer id lookup.
	CustomerPath string
	// CustomerID is the resolved tenant id. Optional; looked up from
	// CustomerPath on first use when empty.
	CustomerID string

	Username string
	Password string

	// UploadFolderID is the remote folder new uploads land in.
	UploadFolderID string
	// PerPage is the default listing page size.
	PerPage int
}
