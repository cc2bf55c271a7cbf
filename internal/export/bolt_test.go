package export

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

var _ = Describe("BoltStore", func() {
	var (
		dbPath string
		store  *BoltStore
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		store, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	It("reports the database path", func() {
		Expect(store.Location()).To(Equal(dbPath))
	})

	Describe("Put", func() {
		var err error

		JustBeforeEach(func() {
			err = store.Put(context.Background(), []*receipt.Record{sampleRecord("a.png"), sampleRecord("b.png")})
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should store each record by source file", func() {
				saved, getErr := store.get("b.png")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved).To(Equal(sampleRecord("b.png")))
			})
		})

		When("a later run is saved", func() {
			It("replaces the earlier records", func() {
				Expect(store.Put(context.Background(), []*receipt.Record{sampleRecord("c.png")})).To(Succeed())

				records, listErr := store.list()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
				Expect(records[0].SourceFile).To(Equal("c.png"))
			})
		})
	})

	Describe("get", func() {
		When("record does not exist", func() {
			It("returns the error", func() {
				_, err := store.get("nonexistent.png")
				Expect(err).To(MatchError(ContainSubstring("record not found")))
			})
		})
	})

	Describe("list", func() {
		It("returns an empty list for a new database", func() {
			records, err := store.list()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("orders records by source file", func() {
			Expect(store.Put(context.Background(), []*receipt.Record{sampleRecord("z.png"), sampleRecord("a.png")})).To(Succeed())
			records, err := store.list()
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].SourceFile).To(Equal("a.png"))
			Expect(records[1].SourceFile).To(Equal("z.png"))
		})
	})

	It("keeps records across reopen", func() {
		Expect(store.Put(context.Background(), []*receipt.Record{sampleRecord("a.png")})).To(Succeed())
		Expect(store.Close()).To(Succeed())

		var err error
		store, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
		records, err := store.list()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
	})
})
