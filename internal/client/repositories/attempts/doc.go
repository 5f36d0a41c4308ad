// Package attempts persists the local journal of operator actions (OTP
// requests, refresh submissions, status checks) so failures can be traced
// after the fact by request id.
//
// The journal is write-mostly. Nothing in the refresh flow reads it back to
// make decisions.
//
//	repo := attempts.NewSQLiteRepository(db)
//	_ = repo.Append(ctx, attempt)
//	last, _ := repo.Recent(ctx, 20)
//	_, _ = repo.Prune(ctx, 500)
package attempts
