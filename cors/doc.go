// Package cors decides which cross-origin response headers a request receives.
//
// The policy is a table from deployment environment to an ordered list of
// allowed origins. Entries are either an exact origin, a "*." suffix pattern
// such as "*.example.pages.dev", or the wildcard "*". The table is compiled
// once and is read-only afterwards, so a Resolver is safe for concurrent use.
package cors
