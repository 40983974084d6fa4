package model

// Credential is one entry of the credential table.
//
// Password holds the plaintext password (the format the desktop app
// wrote) or, when hashing is enabled in config, a bcrypt hash. The table is
// a plain file readable by anyone with access to the data directory.
type Credential struct {
	Password string `json:"password"`
}

// CredentialTable maps username to credential. Usernames are unique by
// construction: a second registration replaces the first entry.
type CredentialTable map[string]Credential
