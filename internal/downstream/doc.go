// Package downstream posts relay payloads to the next hop and reports the
// outcome as a Result. Callers pick the fail-soft payload; nothing here
// retries.
package downstream
