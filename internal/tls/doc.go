// Package tls loads key and trust stores and builds the TLS configurations
// of the relay: the mutual-TLS HTTP client used by the edge and the server
// configuration of the middleware listener.
//
// Stores are PEM files or password-protected PKCS#12 archives. Loaded
// material lives behind atomic pointers so it can be swapped when the files
// change on disk without rebuilding clients or listeners.
package tls
