package verify

import (
	"github.com/ossforge/toto/core/keys"
)

// resolveVerifier finds the owner key (or one of its sub-keys) that made a
// signature tagged keyID, and returns a Verifier built from the exact key
// descriptor that produced it, plus the primary keyid a satisfied threshold
// should be credited to. A signature made by a sub-key counts toward its
// primary, never toward the sub-key's own id, so a primary's sub-keys can
// never inflate a threshold beyond the number of distinct primaries that
// actually signed.
func resolveVerifier(owners map[string]keys.PublicKey, keyID string) (keys.Verifier, string, bool) {
	for _, owner := range owners {
		if primary, ok := keys.ResolvePrimaryKeyID(owner, keyID); ok {
			descriptor := owner
			if owner.KeyID != keyID {
				if sub, present := owner.SubKeys[keyID]; present {
					descriptor = sub
				}
			}
			verifier, err := keys.NewVerifier(descriptor)
			if err != nil {
				continue
			}
			return verifier, primary, true
		}
	}
	return nil, "", false
}

// validPrimaries checks every signature in sigs against owners and returns
// the set of distinct primary keyids whose signature verified, deduplicated
// so a primary signing with two sub-keys on the same payload only counts once.
func validPrimaries(signBytes []byte, sigs []keys.Signature, owners map[string]keys.PublicKey) map[string]bool {
	valid := map[string]bool{}
	for _, sig := range sigs {
		verifier, primary, ok := resolveVerifier(owners, sig.KeyID)
		if !ok {
			continue
		}
		if err := verifier.Verify(signBytes, sig); err != nil {
			continue
		}
		valid[primary] = true
	}
	return valid
}
