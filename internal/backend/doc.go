// Package backend implements the terminal hop of the relay chain. It stamps
// every payload it receives with processing metadata and echoes it back.
package backend
