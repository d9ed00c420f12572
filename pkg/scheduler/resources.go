package scheduler

import "math/rand"

// Resources is the scheduler's synthetic resource vector, per spec.md
// §4.3: node capacity is drawn from fixed buckets and pods from a
// uniform range, never from anything the kernel actually reports.
type Resources struct {
	MilliCPU int64
	MemBytes int64
}

// Fits reports whether node capacity r can accommodate pod demand
// other, componentwise.
func (r Resources) Fits(other Resources) bool {
	return r.MilliCPU >= other.MilliCPU && r.MemBytes >= other.MemBytes
}

// Sub returns r minus other, used to compute a node's free capacity
// after hypothetically placing a pod.
func (r Resources) Sub(other Resources) Resources {
	return Resources{MilliCPU: r.MilliCPU - other.MilliCPU, MemBytes: r.MemBytes - other.MemBytes}
}

const gib = 1 << 30

var nodeCPUBuckets = []int64{1000, 2000, 4000}
var nodeMemBuckets = []int64{2 * gib, 4 * gib, 8 * gib}

// RandomNodeResources draws a node's synthetic capacity from the
// fixed buckets spec.md §4.3 defines.
func RandomNodeResources() Resources {
	return Resources{
		MilliCPU: nodeCPUBuckets[rand.Intn(len(nodeCPUBuckets))],
		MemBytes: nodeMemBuckets[rand.Intn(len(nodeMemBuckets))],
	}
}

const (
	podCPUMin = 100
	podCPUMax = 1000
	podMemMin = 64 * (1 << 20)
	podMemMax = 512 * (1 << 20)
)

// RandomPodResources draws a pod's synthetic demand uniformly from
// the ranges spec.md §4.3 defines.
func RandomPodResources() Resources {
	return Resources{
		MilliCPU: podCPUMin + rand.Int63n(podCPUMax-podCPUMin+1),
		MemBytes: podMemMin + rand.Int63n(podMemMax-podMemMin+1),
	}
}
