// Package passcode stores and generates the one-time passcodes used for
// multi-factor authentication.
//
// A passcode is a six-digit numeric code bound to a user reference. It is
// created when a code is issued, and is either consumed by a successful
// verification or expires ten minutes after creation (configurable per issue).
//
// # Overview
//
// The passcode package provides:
//   - Cryptographically random six-digit code generation
//   - A Repository abstraction with PostgreSQL, Redis, file and in-memory backends
//   - Atomic issue: issuing a code invalidates the user's earlier unconsumed codes
//   - At-most-once consumption, even under concurrent verification
//   - A Sweeper that periodically deletes expired passcodes
//
// # Basic Usage
//
//	import "github.com/tendant/simple-mfa/pkg/passcode"
//
//	repo, err := passcode.NewRepository("postgres", passcode.RepositoryConfig{Pool: pool})
//	if err != nil {
//		return err
//	}
//
//	code, err := passcode.DefaultGenerator().Generate()
//	if err != nil {
//		return err
//	}
//
//	p, err := repo.Issue(ctx, passcode.CreateParams{
//		UserRef: user.ID,
//		Code:    code,
//		Now:     time.Now(),
//	})
//
//	// Later, on verification
//	p, err = repo.ConsumeByCode(ctx, submitted, time.Now())
//	if errors.Is(err, passcode.ErrPasscodeNotFound) {
//		// wrong, expired, superseded or already used
//	}
//
// # Lookup Semantics
//
// ConsumeByCode looks a passcode up by its code alone. When two users hold
// the same active code, the most recently created one is consumed first.
//
// # Persistence Options
//
//   - postgres: table mfa_passcode (see migrations/mfa_db.sql)
//   - redis:    hashes, sets and sorted sets under a key prefix, updated by Lua scripts
//   - file:     passcodes.json in a data directory
//   - memory:   process-local, for development and tests
package passcode
