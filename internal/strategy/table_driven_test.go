package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

var _ = Describe("Strategy factory", func() {
	DescribeTable("builds every configured strategy",
		func(kind string) {
			strat, err := strategy.New(kind, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(strat).NotTo(BeNil())
		},
		Entry("least-conn", "least-conn"),
		Entry("round-robin", "round-robin"),
		Entry("weighted-round-robin", "weighted-round-robin"),
		Entry("random", "random"),
		Entry("least-response", "least-response"),
		Entry("consistent-hash", "consistent-hash"),
	)

	It("defaults an empty name to least-conn", func() {
		strat, err := strategy.New("", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(strat).NotTo(BeNil())
	})

	It("rejects an unknown name", func() {
		_, err := strategy.New("fastest-ever", 0)
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("every strategy selects from the candidate list",
		func(kind string) {
			strat, err := strategy.New(kind, 100)
			Expect(err).NotTo(HaveOccurred())

			backends := []*backend.Backend{
				newBackend("http://localhost:8081", 1),
				newBackend("http://localhost:8082", 1),
				newBackend("http://localhost:8083", 1),
			}

			selected := strat.SelectBackend(backends)
			Expect(selected).NotTo(BeNil())
			Expect(backends).To(ContainElement(selected))
		},
		Entry("least-conn", "least-conn"),
		Entry("round-robin", "round-robin"),
		Entry("weighted-round-robin", "weighted-round-robin"),
		Entry("random", "random"),
		Entry("least-response", "least-response"),
		Entry("consistent-hash", "consistent-hash"),
	)
})
