package cache

// Status is the state of one cache entry.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusFresh
	StatusStale
	StatusRevalidating
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusRevalidating:
		return "revalidating"
	case StatusError:
		return "error"
	default:
		return "empty"
	}
}

// HasData reports whether an entry in this state holds a value.
func (s Status) HasData() bool {
	return s == StatusFresh || s == StatusStale || s == StatusRevalidating
}
