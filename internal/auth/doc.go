// Package auth validates the bearer tokens that identify a learner.
//
// Tokens are HMAC-SHA256 signed JWTs whose "uid" claim carries the learner's
// UUID. Accounts and token issuance belong to the identity service; this
// package can also mint tokens so that local tools and tests can talk to
// the API.
package auth
