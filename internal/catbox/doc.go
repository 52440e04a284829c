// Package catbox uploads produced artifacts to an anonymous file host and
// returns their public URLs.
package catbox
