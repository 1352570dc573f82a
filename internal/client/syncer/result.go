// Package syncer moves local changes to the remote and remote changes back,
// one handler per entity type, driven by the Orchestrator.
//
// Handlers never return errors: every outcome is a Result. A failing item
// leaves its record unsynced, records the attempt on the pending change
// queue and adds one line to Result.Errors; the batch continues.
package syncer

// Result is the outcome of one pull, push or single-entity sync.
type Result struct {
	Success     bool
	SyncedCount int
	Errors      []string
}

func Ok(n int) Result {
	return Result{Success: true, SyncedCount: n}
}

func Failed(msg string) Result {
	return Result{Errors: []string{msg}}
}

// Merge combines two results; success requires both.
func (r Result) Merge(o Result) Result {
	return Result{
		Success:     r.Success && o.Success,
		SyncedCount: r.SyncedCount + o.SyncedCount,
		Errors:      append(append([]string(nil), r.Errors...), o.Errors...),
	}
}

func (r *Result) fail(msg string) {
	r.Success = false
	r.Errors = append(r.Errors, msg)
}

const cancelledMessage = "sync cancelled"
