// Package auth implements the challenge-response authorization protocol used
// by write/control endpoints on the instrument.
//
// The instrument issues a challenge with each status response; the first
// character is a format tag and the remainder is a base64-encoded binary
// payload. An authorized request signs that payload bound to the telescope
// identity and boot count:
//
//	payload = base64decode(challenge[1:]) || "|" || telescopeID || "|" || bootCount
//	digest  = SHA-512(payload)
//	signed  = crypto_sign(digest, key)          // 64-byte signature || digest
//	header  = "Basic android|" + challenge[0] + "|" + base64(signed)
//
// The signature is computed over the digest, not the raw payload, and the
// signed message uses the NaCl crypto_sign layout with the signature
// prepended. Both details must be reproduced exactly for compatibility with
// the instrument firmware.
//
// Key material is a raw Ed25519 key: a 32-byte seed or a 64-byte expanded
// secret key. It is resolved per call from an explicit argument, an explicit
// file, the VAONIS_AUTH_KEY_FILE override, or conventional default locations,
// and is deliberately not cached between calls. Every file path passes
// through the pathguard before being read.
package auth
