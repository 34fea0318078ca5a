// Package fifoq provides a minimal inter-process task queue over a named
// pipe: producers enqueue fixed-size frames, a pool of worker processes
// dequeues and executes them.
//
// The core functionality centers around the Channel type, which wraps a
// permission-restricted FIFO plus two sidecars — an advisory-lock file
// guarding the dequeue critical section and a metadata file recording the
// frame size:
//
//	ch, err := fifoq.Create("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Enqueue a unit of work
//	err = ch.Enqueue(ctx, fifoq.Command("gzip", "/var/tmp/big.log"))
//
// Writes of one frame stay at or below the kernel's atomic pipe-write
// limit, so any number of producers may enqueue concurrently without
// additional locking. Reads are not atomic across independent processes,
// which is why Dequeue holds an exclusive flock for the duration of one
// frame read: every frame reaches exactly one consumer, in enqueue order,
// though which consumer gets a given frame is unspecified.
//
// # Worker Pools
//
// StartPool spawns worker processes against a channel and keeps a guard
// write endpoint open so workers never observe end-of-stream while the
// pool is alive. By default each worker is the current binary re-executed,
// which is why pool-using programs call MaybeWorker first thing in main:
//
//	func main() {
//		fifoq.MaybeWorker()
//
//		ch, _ := fifoq.Create("")
//		pool, err := fifoq.StartPool(ctx, ch, fifoq.WithWorkers(4))
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// ... enqueue work ...
//
//		_ = pool.Drain(ctx) // one poison pill per worker
//		if err := pool.Wait(); err != nil {
//			log.Fatal(err) // some worker exited non-zero
//		}
//	}
//
// A worker exits its loop only when it dequeues the reserved poison-pill
// payload; failed tasks are logged and the loop continues. Wait reports
// overall success iff every worker process exited 0, and teardown removes
// the channel's backing objects only when the pool's channel was created,
// not merely opened, by this process — separate pools can therefore extend
// one named queue without one of them deleting it out from under the rest.
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - Atomic single-write enqueue (no producer-side locking)
//   - Exactly-one-consumer delivery via a scoped advisory lock
//   - At-most-once semantics (no acknowledgment, no replay)
//   - Explicit channel handles (no ambient process-wide default)
//   - Context-aware blocking with no internal timeouts
//
// Delivery is local to one host. Persistence, priorities, acknowledgment,
// and redelivery are out of scope.
package fifoq
