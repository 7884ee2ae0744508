package fsm

import (
	"context"
	"sync"
	"time"
)

// CachedObserver is an observer that caches the most recent transitions of
// the observed state machine and lets callers wait for a state.
type CachedObserver struct {
	cachedNotifications *FixedSizeSlice[Notification]

	// reached holds every state the machine has entered so far.
	reached map[StateType]struct{}

	// lastError is the last error an action reported via OnError.
	lastError error

	notificationCond *sync.Cond
	notificationMx   sync.Mutex
}

// NewCachedObserver creates a new cached observer with the given maximum
// number of cached notifications.
func NewCachedObserver(maxElements int) *CachedObserver {
	observer := &CachedObserver{
		cachedNotifications: NewFixedSizeSlice[Notification](
			maxElements,
		),
		reached: make(map[StateType]struct{}),
	}
	observer.notificationCond = sync.NewCond(&observer.notificationMx)

	return observer
}

// Notify implements the Observer interface.
func (c *CachedObserver) Notify(notification Notification) {
	c.notificationMx.Lock()
	defer c.notificationMx.Unlock()

	c.cachedNotifications.Add(notification)
	c.reached[notification.NextState] = struct{}{}
	if notification.Event == OnError {
		c.lastError = notification.LastActionError
	}

	c.notificationCond.Broadcast()
}

// GetCachedNotifications returns a copy of the cached notifications.
func (c *CachedObserver) GetCachedNotifications() []Notification {
	c.notificationMx.Lock()
	defer c.notificationMx.Unlock()

	return c.cachedNotifications.Get()
}

// WaitForStateOption is an option that can be passed to the WaitForState
// function.
type WaitForStateOption func(*waitOptions)

type waitOptions struct {
	abortEarlyOnError bool
}

// WithAbortEarlyOnErrorOption makes WaitForState return the action error as
// soon as the machine processed an OnError event.
func WithAbortEarlyOnErrorOption() WaitForStateOption {
	return func(o *waitOptions) {
		o.abortEarlyOnError = true
	}
}

// WaitForState blocks until the state machine has entered the given state,
// the timeout expires or the context is canceled.
func (c *CachedObserver) WaitForState(ctx context.Context,
	timeout time.Duration, state StateType,
	opts ...WaitForStateOption) error {

	var options waitOptions
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Wake up the waiter below once the context is done, otherwise it
	// would sleep until the next notification.
	stop := context.AfterFunc(ctx, func() {
		c.notificationMx.Lock()
		defer c.notificationMx.Unlock()

		c.notificationCond.Broadcast()
	})
	defer stop()

	c.notificationMx.Lock()
	defer c.notificationMx.Unlock()

	for {
		if _, ok := c.reached[state]; ok {
			return nil
		}

		if options.abortEarlyOnError && c.lastError != nil {
			return c.lastError
		}

		if ctx.Err() != nil {
			return NewErrWaitingForStateTimeout(state)
		}

		c.notificationCond.Wait()
	}
}

// FixedSizeSlice is a slice with a fixed size.
type FixedSizeSlice[T any] struct {
	data   []T
	maxLen int

	sync.Mutex
}

// NewFixedSizeSlice initializes a new FixedSizeSlice with a given maximum
// length.
func NewFixedSizeSlice[T any](maxLen int) *FixedSizeSlice[T] {
	return &FixedSizeSlice[T]{
		data:   make([]T, 0, maxLen),
		maxLen: maxLen,
	}
}

// Add appends a new element to the slice. If the slice reaches its maximum
// length, the first element is removed.
func (fs *FixedSizeSlice[T]) Add(element T) {
	fs.Lock()
	defer fs.Unlock()

	if len(fs.data) == fs.maxLen {
		fs.data = fs.data[1:]
	}
	fs.data = append(fs.data, element)
}

// Get returns a copy of the slice.
func (fs *FixedSizeSlice[T]) Get() []T {
	fs.Lock()
	defer fs.Unlock()

	data := make([]T, len(fs.data))
	copy(data, fs.data)

	return data
}
