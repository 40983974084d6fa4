// Package auth implements the password storage policy for the credential table.
//
// TWO MODES:
// The credential file written by the desktop app stores passwords as plain
// text, and existing users.json files must keep working. So the default mode
// stores and compares plain text.
//
// Setting `hash_passwords: true` (or FITNESS_HASH_PASSWORDS=true) switches new
// registrations to bcrypt. Verification looks at the stored value, not the
// mode: anything that looks like a bcrypt hash is checked with bcrypt,
// everything else is compared as plain text. That way turning hashing on
// never locks out users registered before it was turned on.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is a security feature: it makes brute-force attacks expensive.
// It generates a random salt and embeds it in the output, so no separate
// salt column is needed:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
)

// defaultCost is the bcrypt work factor.
//
// Cost 12 takes roughly ~250ms on a modern machine: negligible for a login,
// brutal for someone trying a wordlist against a stolen users.json.
const defaultCost = 12

// maxBcryptLen is bcrypt's input limit. Longer passwords are silently
// truncated by the algorithm, so we reject them instead.
const maxBcryptLen = 72

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("auth: password does not match")

// PasswordService decides how passwords are stored and checked.
//
// It's a struct (not free functions) so that the mode and cost can be
// injected: tests use cost 4 to keep bcrypt fast.
type PasswordService struct {
	hash bool
	cost int
}

// NewPasswordService creates a PasswordService. With hash=false passwords
// are stored as given; with hash=true they are bcrypt-hashed at cost 12.
func NewPasswordService(hash bool) *PasswordService {
	return &PasswordService{hash: hash, cost: defaultCost}
}

// NewPasswordServiceForTest creates a hashing PasswordService with a custom
// bcrypt cost. Use cost 4 (the minimum) in tests in other packages to avoid
// the ~250ms overhead per operation.
//
// Do NOT use in production: cost 4 is far too weak.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{hash: true, cost: cost}
}

// Hashing reports whether new passwords are stored as bcrypt hashes.
func (p *PasswordService) Hashing() bool {
	return p.hash
}

// Seal returns the value to store in the credential table for plaintext.
//
// In plain mode that is plaintext itself. In hash mode it is a bcrypt hash;
// passwords longer than 72 bytes are rejected with a validation error.
func (p *PasswordService) Seal(plaintext string) (string, error) {
	if !p.hash {
		return plaintext, nil
	}
	if len(plaintext) > maxBcryptLen {
		return "", apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks plaintext against a stored value.
//
// Returns nil on a match and ErrMismatch otherwise. A stored value that
// looks like a bcrypt hash but cannot be decoded is reported as a wrapped
// error, since that means the credential file was damaged.
//
// TIMING SAFETY:
// Both paths compare in constant time: bcrypt does it internally, and the
// plain-text path uses crypto/subtle.
func (p *PasswordService) Verify(stored, plaintext string) error {
	if !looksBcrypt(stored) {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(plaintext)) == 1 {
			return nil
		}
		return ErrMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// looksBcrypt reports whether s has the shape of a bcrypt hash.
// bcrypt hashes are always 60 bytes and start with $2a$, $2b$ or $2y$.
func looksBcrypt(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
