package accounts

import (
	"time"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

// Account is one user record on one chain, keyed by normalized phone. The
// secret material is stored only as the vault's ciphertext blob; the
// plaintext secret and the password protecting it never touch the store.
type Account struct {
	Phone           string
	Chain           chain.ID
	Address         string
	EncryptedSecret string
	CreatedAt       time.Time
}

// HasEncryptedSecret reports whether the record carries a vault blob. Legacy
// records created before password-protected onboarding have an address but
// no blob and must not be silently overwritten.
func (a Account) HasEncryptedSecret() bool {
	return a.EncryptedSecret != ""
}
