// Package viewmodel holds presentation state machines over the API client and the local store.
package viewmodel

// Phase is the active variant of a LoadingState.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "error"
	default:
		return "idle"
	}
}

// LoadingState is idle, loading, loaded(value) or error(err). Exactly one
// variant is active; constructing Loading drops any previous error.
type LoadingState[T any] struct {
	phase Phase
	value T
	err   error
}

func Idle[T any]() LoadingState[T]    { return LoadingState[T]{} }
func Loading[T any]() LoadingState[T] { return LoadingState[T]{phase: PhaseLoading} }

func Loaded[T any](v T) LoadingState[T] {
	return LoadingState[T]{phase: PhaseLoaded, value: v}
}

func Failed[T any](err error) LoadingState[T] {
	return LoadingState[T]{phase: PhaseFailed, err: err}
}

func (s LoadingState[T]) Phase() Phase    { return s.phase }
func (s LoadingState[T]) IsLoading() bool { return s.phase == PhaseLoading }

// Value returns the loaded value; ok is false in every other phase.
func (s LoadingState[T]) Value() (v T, ok bool) {
	return s.value, s.phase == PhaseLoaded
}

// Err returns the failure, nil unless the phase is PhaseFailed.
func (s LoadingState[T]) Err() error { return s.err }

// Pagination tracks incremental loading of the remote list.
// The accumulated items live in the owning view model.
type Pagination struct {
	Page     int
	HasMore  bool
	InFlight bool
	Err      error
}

// NewPagination returns the initial cursor: page 1, nothing more known.
func NewPagination() Pagination { return Pagination{Page: 1} }

// CanLoadMore holds iff there are more pages, nothing is in flight and no error is pending.
func (p Pagination) CanLoadMore() bool {
	return p.HasMore && !p.InFlight && p.Err == nil
}

// Reset returns the cursor to its initial values.
func (p *Pagination) Reset() { *p = NewPagination() }
