// Package jwt issues and verifies the HS256 bearer tokens handed to clients
// after login. Verification is a pure function of the token, the shared
// secret, and the manager's clock.
package jwt
