// Command ignite-bench drives put/get throughput against an ignite store
// with a configurable number of keys, value size, and concurrency,
// mirroring the Rust original's lsmlib_bench example.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ignite-kv/ignite/pkg/ignite"
	"github.com/ignite-kv/ignite/pkg/options"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("ignite-bench", flag.ExitOnError)
	dataDir := fs.String("data-dir", "ignite-bench-data", "store data directory")
	keys := fs.Int("keys", 1_000_000, "number of keys to write and then read back")
	valueSize := fs.Int("value-size", 100, "value size in bytes")
	concurrency := fs.Int("concurrency", 4, "number of concurrent writer/reader goroutines")
	mergeWindow := fs.Uint8("merge-window", 10, "compaction worker merge window")
	fs.Parse(os.Args[1:])

	before := time.Now()
	db, err := ignite.NewInstance(
		context.Background(), "ignite-bench",
		options.WithDataDir(*dataDir), options.WithMergeWindow(*mergeWindow),
	)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()
	fmt.Printf("opened in %v\n", time.Since(before))

	value := make([]byte, *valueSize)
	rand.New(rand.NewSource(time.Now().UnixNano())).Read(value)

	putElapsed := benchmark(*keys, *concurrency, func(i int) error {
		return db.Put(fmt.Sprintf("bench-key-%d", i), value)
	})
	putRate := float64(*keys) / putElapsed.Seconds()
	fmt.Printf("puts:  %d ops in %v (%.0f ops/sec)\n", *keys, putElapsed.Round(time.Millisecond), putRate)

	var hits int64
	var mu sync.Mutex
	getElapsed := benchmark(*keys, *concurrency, func(i int) error {
		_, ok, err := db.Get(fmt.Sprintf("bench-key-%d", i))
		if err != nil {
			return err
		}
		if ok {
			mu.Lock()
			hits++
			mu.Unlock()
		}
		return nil
	})
	getRate := float64(*keys) / getElapsed.Seconds()
	fmt.Printf("gets:  %d ops in %v (%.0f ops/sec), %d hits\n", *keys, getElapsed.Round(time.Millisecond), getRate, hits)

	st, err := db.Stats()
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	fmt.Printf("on-disk bytes: %d, space amp: %.2f, write amp: %.2f\n", st.OnDiskBytes, st.SpaceAmp, st.WriteAmp)

	return nil
}

// benchmark partitions [0, n) across concurrency workers and runs fn for
// every index, returning the wall-clock elapsed for the whole batch. The
// first error from any worker is reported to stderr; benchmark itself
// does not abort the remaining workers on error.
func benchmark(n, concurrency int, fn func(i int) error) time.Duration {
	if concurrency < 1 {
		concurrency = 1
	}

	start := time.Now()
	var wg sync.WaitGroup
	chunk := (n + concurrency - 1) / concurrency

	for w := 0; w < concurrency; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, n)
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if err := fn(i); err != nil {
					fmt.Fprintf(os.Stderr, "operation %d failed: %v\n", i, err)
					return
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	return time.Since(start)
}
