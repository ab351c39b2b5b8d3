// Package gorun provides an embeddable asynchronous task runtime: a
// scheduler, an I/O readiness driver, a timer driver, a blocking-task
// pool, and a signal driver, composed behind a single Runtime.
//
// # Architecture
//
// A [Runtime] owns a scheduler of one [SchedulerKind] (KindShell,
// KindBasic, or KindThreaded), a [DriverStack] (I/O, timer, signal) and
// a [BlockingPool]. User code calls [Spawn] to submit a future (a
// plain Go function run to completion on a goroutine) and gets back a
// [JoinHandle] for its result. [BlockOn] runs a future to completion
// and blocks the calling goroutine until it finishes; on the Basic and
// Threaded kinds the future runs as a task on the runtime's own
// scheduler, on Shell (and in a nested Basic BlockOn) it runs directly
// on the calling goroutine.
//
// Futures that need to wait on a timer or another task's result do so
// via helpers such as [Sleep] and [JoinHandle.Wait]. Sleep finds the
// runtime through the ambient Context installed on the calling goroutine
// by whichever Runtime is driving it, so user code rarely needs to
// thread a Runtime or Handle through call signatures explicitly.
//
// # Platform support
//
// The I/O driver uses epoll on Linux, kqueue on Darwin and an I/O
// completion port on Windows; other platforms get a portable fallback
// built on select(2), in poller_other.go.
//
// # Usage
//
//	rt, err := gorun.NewBuilder().Threaded().EnableAll().Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.ShutdownTimeout(5 * time.Second)
//
//	h := gorun.Spawn(rt.Handle(), func(ctx context.Context) (int, error) {
//		gorun.Sleep(ctx, 10*time.Millisecond)
//		return 42, nil
//	})
//
//	v, err := gorun.BlockOn(rt, context.Background(), func(ctx context.Context) (int, error) {
//		return h.Wait(ctx)
//	})
package gorun
