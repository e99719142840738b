// Package password implements argon2id password hashing and verification.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Verify reads the cost parameters from the stored string, so raising Config costs
// does not invalidate existing hashes. Plaintext passwords are never logged or stored
// here.
package password
