package utils

import (
	"context"
	"image"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachPixel(t *testing.T) {
	size := image.Point{17, 23}
	var count int64
	seen := make([]int32, size.X*size.Y)
	ParallelForEachPixel(size, func(x, y int) {
		atomic.AddInt64(&count, 1)
		atomic.AddInt32(&seen[y*size.X+x], 1)
	})
	test.That(t, count, test.ShouldEqual, int64(size.X*size.Y))
	for i := range seen {
		test.That(t, seen[i], test.ShouldEqual, int32(1))
	}
}

func TestGroupWorkParallel(t *testing.T) {
	for _, totalSize := range []int{0, 1, 3, 100} {
		var count int64
		seen := make([]int32, totalSize)
		err := GroupWorkParallel(context.Background(), totalSize, func(groupSize int) {
			test.That(t, groupSize, test.ShouldBeGreaterThanOrEqualTo, 0)
		}, func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
			test.That(t, to-from, test.ShouldEqual, groupSize)
			return func(memberNum, workNum int) {
				atomic.AddInt64(&count, 1)
				atomic.AddInt32(&seen[workNum], 1)
			}, nil
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, count, test.ShouldEqual, int64(totalSize))
		for i := range seen {
			test.That(t, seen[i], test.ShouldEqual, int32(1))
		}
	}
}
