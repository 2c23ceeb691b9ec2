package identity

// Claim is the normalized identity assertion extracted from a verified
// external token, whichever verification path produced it.
type Claim struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	GivenName     string
	FamilyName    string
	Provider      string // sign-in provider asserted by the token
}
