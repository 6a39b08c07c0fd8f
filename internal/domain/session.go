package domain

// Session is the server-trusted per-browser context established at
// login. It caches a denormalized snapshot of the account to avoid a
// store round trip on every request. The snapshot is not the source of
// truth; the account repository is, and it can lag behind when two
// sessions for the same account run concurrently. A session that
// exists is logged in; logout removes it from the registry.
type Session struct {
	ID         string
	Email      string
	Name       string
	Score      int64
	BestTimeMs int64
	Verified   bool
}
