package scanning

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockBackend fails the first failures calls, then succeeds
type mockBackend struct {
	mu           sync.Mutex
	failures     int
	calls        int
	contentTypes []string
	result       *AnalyzeResult
	closed       bool
}

func (m *mockBackend) Analyze(_ context.Context, _ []byte, contentType string) (*AnalyzeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.contentTypes = append(m.contentTypes, contentType)
	if m.calls <= m.failures {
		return nil, errors.New("service unavailable")
	}
	return m.result, nil
}

func (m *mockBackend) Close() error {
	m.closed = true
	return nil
}

func (m *mockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ = Describe("Client", func() {
	var (
		backend  *mockBackend
		client   *Client
		delays   []time.Duration
		dir      string
		path     string
		expected *AnalyzeResult
	)

	BeforeEach(func() {
		expected = &AnalyzeResult{ModelID: ReceiptModelID}
		backend = &mockBackend{result: expected}
		delays = nil
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "receipt.jpg")
		Expect(os.WriteFile(path, []byte("fake image data"), 0644)).To(Succeed())

		client = NewClient(backend, WithSleeper(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	})

	Describe("Analyze", func() {
		When("the backend succeeds immediately", func() {
			It("returns the result after one call", func() {
				result, err := client.Analyze(context.Background(), path)
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(BeIdenticalTo(expected))
				Expect(backend.Calls()).To(Equal(1))
				Expect(delays).To(BeEmpty())
			})

			It("sends the content type from the extension", func() {
				_, err := client.Analyze(context.Background(), path)
				Expect(err).NotTo(HaveOccurred())
				Expect(backend.contentTypes).To(ConsistOf("image/jpeg"))
			})
		})

		When("the backend fails twice then succeeds", func() {
			BeforeEach(func() {
				backend.failures = 2
			})

			It("retries with exponential backoff", func() {
				result, err := client.Analyze(context.Background(), path)
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(BeIdenticalTo(expected))
				Expect(backend.Calls()).To(Equal(3))
				Expect(delays).To(Equal([]time.Duration{time.Second, 2 * time.Second}))
			})
		})

		When("the backend always fails", func() {
			BeforeEach(func() {
				backend.failures = 100
			})

			It("gives up after the maximum attempts", func() {
				result, err := client.Analyze(context.Background(), path)
				Expect(result).To(BeNil())
				Expect(backend.Calls()).To(Equal(DefaultMaxAttempts))
				Expect(delays).To(Equal([]time.Duration{time.Second, 2 * time.Second}))

				Expect(errors.Is(err, ErrBackendFailure)).To(BeTrue())
				var backendErr *BackendError
				Expect(errors.As(err, &backendErr)).To(BeTrue())
				Expect(backendErr.Attempts).To(Equal(3))
				Expect(backendErr.Path).To(Equal(path))
				Expect(backendErr.Err).To(MatchError("service unavailable"))
			})

			It("honours a custom attempt count and delay", func() {
				client = NewClient(backend,
					WithMaxAttempts(4),
					WithBaseDelay(10*time.Millisecond),
					WithSleeper(func(_ context.Context, d time.Duration) error {
						delays = append(delays, d)
						return nil
					}),
				)
				_, err := client.Analyze(context.Background(), path)
				Expect(err).To(HaveOccurred())
				Expect(backend.Calls()).To(Equal(4))
				Expect(delays).To(Equal([]time.Duration{
					10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond,
				}))
			})
		})

		When("the context is cancelled during backoff", func() {
			BeforeEach(func() {
				backend.failures = 100
				client = NewClient(backend, WithBaseDelay(time.Hour))
			})

			It("stops retrying", func() {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				_, err := client.Analyze(ctx, path)
				Expect(errors.Is(err, ErrBackendFailure)).To(BeTrue())
				Expect(errors.Is(err, context.Canceled)).To(BeTrue())
				Expect(backend.Calls()).To(Equal(1))

				var backendErr *BackendError
				Expect(errors.As(err, &backendErr)).To(BeTrue())
				Expect(backendErr.Attempts).To(Equal(1))
			})
		})

		When("the image does not exist", func() {
			It("returns ErrNotFound without calling the backend", func() {
				_, err := client.Analyze(context.Background(), filepath.Join(dir, "missing.png"))
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
				Expect(errors.Is(err, ErrBackendFailure)).To(BeFalse())
				Expect(backend.Calls()).To(BeZero())
			})
		})

		When("the path is a directory", func() {
			It("returns ErrNotFound", func() {
				_, err := client.Analyze(context.Background(), dir)
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
				Expect(backend.Calls()).To(BeZero())
			})
		})
	})

	Describe("Close", func() {
		It("closes the backend", func() {
			Expect(client.Close()).To(Succeed())
			Expect(backend.closed).To(BeTrue())
		})
	})
})

var _ = Describe("detectContentType", func() {
	DescribeTable("maps extensions",
		func(name, expected string) {
			Expect(detectContentType(name, []byte("whatever"))).To(Equal(expected))
		},
		Entry("png", "a.png", "image/png"),
		Entry("upper case jpg", "a.JPG", "image/jpeg"),
		Entry("jpeg", "a.jpeg", "image/jpeg"),
		Entry("pdf", "a.pdf", "application/pdf"),
		Entry("heic", "a.heic", "image/heic"),
	)

	It("sniffs unknown extensions", func() {
		pngMagic := []byte("\x89PNG\r\n\x1a\n0000")
		Expect(detectContentType("scan.bin", pngMagic)).To(Equal("image/png"))
	})
})
