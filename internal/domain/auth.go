package domain

// CredentialSource identifies which credential authenticated a request.
type CredentialSource string

const (
	SourceAdminCookie   CredentialSource = "ADMIN_COOKIE"
	SourceStaffToken    CredentialSource = "STAFF_TOKEN"
	SourceNativeSession CredentialSource = "NATIVE_SESSION"
	SourceNone          CredentialSource = "NONE"
)

// AuthResult is the per-request outcome of session resolution.
type AuthResult struct {
	Principal *Principal
	Source    CredentialSource
}

// Authenticated reports whether a principal was resolved.
func (r AuthResult) Authenticated() bool {
	return r.Principal != nil && r.Source != SourceNone
}
