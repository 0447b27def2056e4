package strategy_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

var _ = Describe("LeastConn", func() {
	var (
		strat    strategy.Strategy
		backends []*backend.Backend
	)

	BeforeEach(func() {
		strat = strategy.NewLeastConnStrategy()
		backends = []*backend.Backend{
			newBackend("http://localhost:8081", 1),
			newBackend("http://localhost:8082", 1),
			newBackend("http://localhost:8083", 1),
		}
	})

	Describe("SelectBackend", func() {
		It("should select the backend with fewest connections", func() {
			backends[0].IncrementConn()
			backends[0].IncrementConn()
			backends[1].IncrementConn()

			Expect(strat.SelectBackend(backends)).To(Equal(backends[2]))
		})

		It("should break ties in favor of the earlier backend", func() {
			Expect(strat.SelectBackend(backends)).To(Equal(backends[0]))
		})

		It("should return nil for an empty list", func() {
			Expect(strat.SelectBackend(nil)).To(BeNil())
		})
	})
})

var _ = Describe("RoundRobin", func() {
	var (
		strat    strategy.Strategy
		backends []*backend.Backend
	)

	BeforeEach(func() {
		strat = strategy.NewRoundRobinStrategy()
		backends = []*backend.Backend{
			newBackend("http://localhost:8081", 1),
			newBackend("http://localhost:8082", 1),
			newBackend("http://localhost:8083", 1),
		}
	})

	Describe("SelectBackend", func() {
		It("should cycle through backends in order", func() {
			Expect(strat.SelectBackend(backends)).To(Equal(backends[0]))
			Expect(strat.SelectBackend(backends)).To(Equal(backends[1]))
			Expect(strat.SelectBackend(backends)).To(Equal(backends[2]))
			Expect(strat.SelectBackend(backends)).To(Equal(backends[0]))
		})

		It("should distribute load evenly", func() {
			counts := make(map[string]int)
			for i := 0; i < 300; i++ {
				selected := strat.SelectBackend(backends)
				counts[selected.URL().String()]++
			}
			Expect(counts["http://localhost:8081"]).To(Equal(100))
			Expect(counts["http://localhost:8082"]).To(Equal(100))
			Expect(counts["http://localhost:8083"]).To(Equal(100))
		})

		It("should return nil for an empty list", func() {
			Expect(strat.SelectBackend([]*backend.Backend{})).To(BeNil())
		})
	})
})

var _ = Describe("WeightedRoundRobin", func() {
	It("should distribute proportionally to weights", func() {
		strat := strategy.NewWeightedRoundRobinStrategy()
		backends := []*backend.Backend{
			newBackend("http://localhost:8081", 3),
			newBackend("http://localhost:8082", 1),
		}

		counts := make(map[string]int)
		for i := 0; i < 400; i++ {
			selected := strat.SelectBackend(backends)
			counts[selected.URL().String()]++
		}

		Expect(counts["http://localhost:8081"]).To(Equal(300))
		Expect(counts["http://localhost:8082"]).To(Equal(100))
	})

	It("should return nil for an empty list", func() {
		strat := strategy.NewWeightedRoundRobinStrategy()
		Expect(strat.SelectBackend([]*backend.Backend{})).To(BeNil())
	})
})

var _ = Describe("LeastResponse", func() {
	var (
		strat    strategy.Strategy
		backends []*backend.Backend
	)

	BeforeEach(func() {
		strat = strategy.NewLeastResponseStrategy()
		backends = []*backend.Backend{
			newBackend("http://localhost:8081", 1),
			newBackend("http://localhost:8082", 1),
			newBackend("http://localhost:8083", 1),
		}
	})

	It("should select the backend with the lowest EWMA response time", func() {
		backends[0].RecordResponse(100 * time.Millisecond)
		backends[1].RecordResponse(50 * time.Millisecond)
		backends[2].RecordResponse(200 * time.Millisecond)

		Expect(strat.SelectBackend(backends)).To(Equal(backends[1]))
	})

	It("should select the first unsampled backend", func() {
		Expect(strat.SelectBackend(backends)).To(Equal(backends[0]))
	})

	It("should return nil for an empty list", func() {
		Expect(strat.SelectBackend([]*backend.Backend{})).To(BeNil())
	})
})

var _ = Describe("ConsistentHash", func() {
	It("should map the same key to the same backend", func() {
		strat := strategy.NewConsistentHashStrategy(100)
		backends := []*backend.Backend{
			newBackend("http://localhost:8081", 1),
			newBackend("http://localhost:8082", 1),
			newBackend("http://localhost:8083", 1),
		}

		keyed, ok := strat.(strategy.KeyedStrategy)
		Expect(ok).To(BeTrue())

		keyed.SetKey("10.0.0.7")
		first := strat.SelectBackend(backends)
		Expect(first).NotTo(BeNil())

		for i := 0; i < 10; i++ {
			keyed.SetKey("10.0.0.7")
			Expect(strat.SelectBackend(backends)).To(Equal(first))
		}
	})

	It("should only select from the candidate list it was given", func() {
		strat := strategy.NewConsistentHashStrategy(100)
		backends := []*backend.Backend{
			newBackend("http://localhost:8081", 1),
			newBackend("http://localhost:8082", 1),
			newBackend("http://localhost:8083", 1),
		}

		keyed := strat.(strategy.KeyedStrategy)
		keyed.SetKey("10.0.0.7")
		first := strat.SelectBackend(backends)

		// The ring owner drops out; the same key must remap to a survivor.
		survivors := make([]*backend.Backend, 0, 2)
		for _, b := range backends {
			if b != first {
				survivors = append(survivors, b)
			}
		}

		keyed.SetKey("10.0.0.7")
		chosen := strat.SelectBackend(survivors)
		Expect(chosen).NotTo(BeNil())
		Expect(chosen).NotTo(Equal(first))
		Expect(survivors).To(ContainElement(chosen))
	})

	It("should keep the mapping stable when the owner returns", func() {
		strat := strategy.NewConsistentHashStrategy(100)
		backends := []*backend.Backend{
			newBackend("http://localhost:8081", 1),
			newBackend("http://localhost:8082", 1),
		}

		keyed := strat.(strategy.KeyedStrategy)
		keyed.SetKey("10.0.0.7")
		first := strat.SelectBackend(backends)

		keyed.SetKey("10.0.0.7")
		strat.SelectBackend(backends[:1])

		keyed.SetKey("10.0.0.7")
		Expect(strat.SelectBackend(backends)).To(Equal(first))
	})
})
