package notify

import (
	"context"
	"fmt"
	"sync"
)

// Task is one independent unit of best-effort work.
type Task[T any] func(ctx context.Context) (T, error)

// Outcome is the settled result of a Task.
type Outcome[T any] struct {
	Value T
	Err   error
}

// SettleAll runs every task concurrently and waits for all of them. A failing
// or panicking task never prevents the others from running. Outcomes are
// returned in task order.
func SettleAll[T any](ctx context.Context, tasks ...Task[T]) []Outcome[T] {
	out := make([]Outcome[T], len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		if task == nil {
			continue
		}
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					out[i].Err = fmt.Errorf("notify: task panicked: %v", r)
				}
			}()
			out[i].Value, out[i].Err = task(ctx)
		}(i, task)
	}
	wg.Wait()
	return out
}
