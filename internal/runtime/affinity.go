package runtime

import (
	"log"
	goruntime "runtime"

	"golang.org/x/sys/unix"
)

// pinCPU binds the calling OS thread to CPU (id mod hardware
// concurrency), per spec.md §4.8. Callers must have already called
// runtime.LockOSThread so the binding actually sticks to this
// goroutine's thread for its lifetime.
func pinCPU(id int) {
	n := goruntime.NumCPU()
	if n == 0 {
		return
	}
	cpu := id % n

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		log.Printf("runtime: cpu affinity for worker %d -> cpu %d: %v", id, cpu, err)
	}
}
