package logger_test

import (
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("should create logger for each level", func() {
			for _, lvl := range []string{"debug", "info", "warn", "error"} {
				Expect(logger.New(lvl, false, "dev")).NotTo(BeNil())
			}
		})

		It("should default to info for invalid level", func() {
			log := logger.New("invalid", false, "dev")
			Expect(log).NotTo(BeNil())
			Expect(log.Enabled(nil, slog.LevelInfo)).To(BeTrue())
			Expect(log.Enabled(nil, slog.LevelDebug)).To(BeFalse())
		})

		It("should create prod logger", func() {
			Expect(logger.New("info", false, "prod")).NotTo(BeNil())
		})

		It("should support addSource option", func() {
			Expect(logger.New("info", true, "dev")).NotTo(BeNil())
		})

		It("should respect debug level", func() {
			log := logger.New("debug", false, "dev")
			Expect(log.Enabled(nil, slog.LevelDebug)).To(BeTrue())
		})
	})
})
