package sf

import "golang.org/x/sync/singleflight"

// Singleflight deduplicates concurrent calls per key.
type Singleflight[T any] struct {
	group singleflight.Group
}

// Do runs fn for key unless a call for key is already running, in which case
// it waits for that call and returns its result. The key is forgotten as soon
// as fn returns, so later calls run fn again.
func (s *Singleflight[T]) Do(key string, fn func() (*T, error)) (*T, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func New[T any]() *Singleflight[T] {
	return &Singleflight[T]{}
}
