package interfaces

import (
	domaintypes "meshchat/internal/domain/types"
)

// IdentityService creates, retrieves, and resets the local identity.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	LoadOrGenerate(passphrase string) (domaintypes.Identity, bool, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
	Reset(passphrase string) (domaintypes.Identity, error)
}
