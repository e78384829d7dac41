// Package batchwake drains every "due" item at the head of an ordered
// queue in a single pass, stopping at the first item that isn't due yet.
//
// It is adapted from microbatch's accumulate-then-flush loop
// (github.com/joeycumines/go-microbatch): that package batches jobs by
// size or flush interval and hands the accumulated batch to a processor
// in one call; here the batching condition is "deadline has elapsed"
// rather than size/time, but the shape — accumulate a prefix of an
// ordered collection, then flush it as one unit — is the same structural
// idea, repurposed from throughput batching to sleep-queue wake batching.
package batchwake

// Queue is the minimal ordered-queue surface DrainDue needs: peek/pop the
// minimum element, and report how many remain.
type Queue[T any] interface {
	Len() int
	PeekMin() T
	PopMin() T
}

// DrainDue pops and returns every element for which due returns true,
// starting from the minimum and proceeding in order, stopping at the
// first element that is not due (or when the queue is exhausted). It
// relies on the queue being sorted ascending by the same key due tests,
// exactly as spec §4.D's sleep_list is: "because the list is ordered,
// the first non-ready head terminates the scan."
func DrainDue[T any](q Queue[T], due func(T) bool) []T {
	var batch []T
	for q.Len() > 0 {
		head := q.PeekMin()
		if !due(head) {
			break
		}
		batch = append(batch, q.PopMin())
	}
	return batch
}
