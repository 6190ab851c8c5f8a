package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receiptbox/internal/extraction"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveReceipt", func() {
		var (
			receipt *Receipt
			err     error
		)

		BeforeEach(func() {
			tax := 212
			vendor := "Starbucks"
			receipt = &Receipt{
				ID:            "test-id",
				VendorName:    "Starbucks",
				Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Amount:        2599,
				TaxAmount:     &tax,
				PaymentMethod: extraction.PaymentCard,
				Currency:      "USD",
				Filename:      "test-id_test.jpg",
				ContentType:   "image/jpeg",
				OCRConfidence: 95,
				Extracted:     &extraction.Fields{VendorName: &vendor, Confidence: 95},
				Tags:          []string{"coffee"},
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveReceipt(receipt)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the receipt to the database", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
			})

			It("should keep the extracted fields", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Extracted).NotTo(BeNil())
				Expect(*saved.Extracted.VendorName).To(Equal("Starbucks"))
				Expect(*saved.TaxAmount).To(Equal(212))
				Expect(saved.PaymentMethod).To(Equal(extraction.PaymentCard))
				Expect(saved.Tags).To(Equal([]string{"coffee"}))
			})
		})

		When("the receipt already exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(&Receipt{ID: "test-id", VendorName: "Old"})).To(Succeed())
			})

			It("should replace it", func() {
				Expect(err).NotTo(HaveOccurred())
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.VendorName).To(Equal("Starbucks"))
			})
		})
	})

	Describe("GetReceipt", func() {
		var (
			receiptID string
			receipt   *Receipt
			err       error
		)

		JustBeforeEach(func() {
			receipt, err = db.GetReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				testReceipt := &Receipt{
					ID:          "test-id",
					VendorName:  "Corner Deli",
					Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
					Amount:      2599,
					Filename:    "test-id_test.jpg",
					ContentType: "image/jpeg",
					CreatedAt:   time.Now(),
					UpdatedAt:   time.Now(),
				}
				Expect(db.SaveReceipt(testReceipt)).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct receipt ID", func() {
				Expect(receipt.ID).To(Equal("test-id"))
			})

			It("should return the correct vendor", func() {
				Expect(receipt.VendorName).To(Equal("Corner Deli"))
			})

			It("should return the correct receipt amount", func() {
				Expect(receipt.Amount).To(Equal(2599))
			})

			It("should return the correct date", func() {
				Expect(receipt.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))).To(BeTrue())
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("should wrap ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
				Expect(err.Error()).To(ContainSubstring("nonexistent"))
			})
		})
	})

	Describe("ListReceipts", func() {
		var (
			receipts []*Receipt
			err      error
		)

		JustBeforeEach(func() {
			receipts, err = db.ListReceipts()
		})

		When("receipts exist", func() {
			BeforeEach(func() {
				receipt1 := &Receipt{
					ID:         "id1",
					VendorName: "Receipt 1",
					CreatedAt:  time.Now(),
					UpdatedAt:  time.Now(),
				}
				receipt2 := &Receipt{
					ID:         "id2",
					VendorName: "Receipt 2",
					CreatedAt:  time.Now(),
					UpdatedAt:  time.Now(),
				}
				Expect(db.SaveReceipt(receipt1)).NotTo(HaveOccurred())
				Expect(db.SaveReceipt(receipt2)).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return all receipts", func() {
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an empty list", func() {
				Expect(receipts).NotTo(BeNil())
				Expect(receipts).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReceipt", func() {
		var (
			receiptID string
			err       error
		)

		JustBeforeEach(func() {
			err = db.DeleteReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				receipt := &Receipt{
					ID:        "test-id",
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				}
				Expect(db.SaveReceipt(receipt)).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the receipt from the database", func() {
				_, getErr := db.GetReceipt("test-id")
				Expect(getErr).To(MatchError(ErrNotFound))
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	Describe("reopening", func() {
		It("should keep saved receipts", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "kept", VendorName: "Border Grill"})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			saved, err := db.GetReceipt("kept")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.VendorName).To(Equal("Border Grill"))
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			err := db.Close()
			Expect(err).NotTo(HaveOccurred())
			db = nil
		})
	})
})
