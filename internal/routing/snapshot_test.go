package routing_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/internal/pool"
	"github.com/angeloszaimis/edge-router/internal/routing"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

var _ = Describe("Holder", func() {
	It("should return nil before the first swap", func() {
		Expect(routing.NewHolder().Load()).To(BeNil())
	})

	It("should publish the swapped snapshot and return the previous one", func() {
		holder := routing.NewHolder()

		first := &routing.Snapshot{Table: routing.NewTable(nil, "frontend")}
		Expect(holder.Swap(first)).To(BeNil())
		Expect(holder.Load()).To(BeIdenticalTo(first))

		second := &routing.Snapshot{Table: routing.NewTable(nil, "frontend")}
		Expect(holder.Swap(second)).To(BeIdenticalTo(first))
		Expect(holder.Load()).To(BeIdenticalTo(second))
	})

	It("should never expose a partial snapshot to concurrent readers", func() {
		holder := routing.NewHolder()
		snapshots := []*routing.Snapshot{
			{Table: routing.NewTable(nil, "frontend")},
			{Table: routing.NewTable(nil, "frontend")},
		}
		holder.Swap(snapshots[0])

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					s := holder.Load()
					Expect(s).To(Or(BeIdenticalTo(snapshots[0]), BeIdenticalTo(snapshots[1])))
				}
			}()
		}

		for j := 0; j < 100; j++ {
			holder.Swap(snapshots[j%2])
		}
		wg.Wait()
	})
})

var _ = Describe("Snapshot", func() {
	It("should resolve pools by name", func() {
		p := pool.New("backend", strategy.NewLeastConnStrategy(), nil)
		s := &routing.Snapshot{Pools: map[string]*pool.Pool{"backend": p}}

		got, ok := s.Pool("backend")
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(p))

		_, ok = s.Pool("missing")
		Expect(ok).To(BeFalse())
	})
})
