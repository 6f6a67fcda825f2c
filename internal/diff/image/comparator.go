package image

import (
	"image"
	"runtime"
	"sync"
	"sync/atomic"
)

type PixelComparator struct {
	IgnoreAlpha bool
	Workers     int
}

// Compare returns the coordinates where a and b differ. Both canvases must
// have the same size. Every coordinate outside overlap, the area both inputs
// covered before padding, differs whatever the padded pixels hold.
func (p *PixelComparator) Compare(a *Canvas, b *Canvas, overlap image.Rectangle) *DifferenceSet {
	width, height := a.width, a.height
	set := &DifferenceSet{
		width:  width,
		height: height,
		mask:   make([]bool, width*height),
	}

	eq := rgbaEqual
	if p.IgnoreAlpha {
		eq = rgbEqual
	}

	var count int64
	partitionRows(height, p.Workers, func(startY int, endY int) {
		var local int64
		for y := startY; y < endY; y++ {
			rowStart := y * width
			aRow := a.pix[rowStart : rowStart+width]
			bRow := b.pix[rowStart : rowStart+width]
			maskRow := set.mask[rowStart : rowStart+width]
			rowInside := y >= overlap.Min.Y && y < overlap.Max.Y

			for x := range maskRow {
				differs := !rowInside || x < overlap.Min.X || x >= overlap.Max.X || !eq(aRow[x], bRow[x])
				if differs {
					maskRow[x] = true
					local++
				}
			}
		}
		atomic.AddInt64(&count, local)
	})

	set.count = int(count)
	return set
}

// partitionRows splits [0, height) into contiguous row ranges and runs fn on
// each of them concurrently. Each invocation owns its rows exclusively.
func partitionRows(height int, workers int, fn func(startY int, endY int)) {
	if height <= 0 {
		return
	}

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers == 1 {
		fn(0, height)
		return
	}

	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}
