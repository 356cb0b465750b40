package misc

const (
	// PinHashDomain is the application-fixed domain string mixed into PIN
	// hashes. It keeps a leaked hash database from being comparable with
	// other applications' PIN hashes. It is not a per-operation salt.
	PinHashDomain = "calcpro-vault-pin-v1"

	// PBKDF2Iterations Key derivation parameters
	PBKDF2Iterations = 100000
	KeyLen           = 32
	SaltSize         = 16

	FilePermissions = 0600 // user read + write
)
