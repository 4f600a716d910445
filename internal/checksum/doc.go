// Package checksum provides archive integrity: digest sidecar creation,
// digest verification, and a structural tar read test.
//
// Digest providers are probed in preference order (modern first, legacy
// md5 last) and their availability is never a hard requirement: when no
// provider or no sidecar exists, verification degrades to a logged
// warning so corruption detection never blocks the backup pipeline.
// Only a digest mismatch or an unreadable archive is fatal.
package checksum
