// Package file implements the document store and the sidecar lock protocol
// on a shared filesystem.
package file
