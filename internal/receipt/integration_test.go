package receipt_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receiptbox/internal/extraction"
	"github.com/zombor/receiptbox/internal/receipt"
	"github.com/zombor/receiptbox/internal/scanning"
)

// fakeScanner returns canned text, as the vision engines would after transcription
type fakeScanner struct {
	text string
}

func (f *fakeScanner) ScanText(imageData []byte, contentType string) (string, error) {
	return f.text, nil
}

func (f *fakeScanner) Engine() string {
	return scanning.EngineVision
}

func (f *fakeScanner) Close() error {
	return nil
}

func jpegImage(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Integration", func() {
	var (
		tempDir  string
		db       *receipt.BoltDB
		store    receipt.Storage
		scanner  *fakeScanner
		server   *receipt.Server
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		var err error
		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		scanner = &fakeScanner{
			text: "Border Grill\n1445 4th St\n04/12/2024\nSubtotal $38.00\nTax $3.42\nTip $7.00\nTotal $48.42\nPaid with Apple Pay",
		}

		service := receipt.NewService(db, scanner, store, receipt.Config{Strategy: extraction.CloudStrategy})
		server = receipt.NewServer(service, receipt.BasicAuth{}) // No auth for testing convenience

		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	upload := func() *receipt.Receipt {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "dinner.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(jpegImage(800, 1200))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.WriteField("tags", "travel")).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		return &created
	}

	It("should upload, read and store a receipt", func() {
		ghServer.AppendHandlers(server.ServeHTTP)

		created := upload()
		Expect(created.VendorName).To(Equal("Border Grill"))
		Expect(created.Amount).To(Equal(4842))
		Expect(*created.TaxAmount).To(Equal(342))
		Expect(*created.TipAmount).To(Equal(700))
		Expect(created.PaymentMethod).To(Equal(extraction.PaymentDigital))
		Expect(created.Date.Format("2006-01-02")).To(Equal("2024-04-12"))
		Expect(created.OCREngine).To(Equal("google_vision"))
		Expect(created.NeedsReview).To(BeFalse())
		Expect(created.Tags).To(Equal([]string{"travel"}))

		saved, err := db.GetReceipt(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Amount).To(Equal(4842))

		_, err = store.Get(created.Filename)
		Expect(err).NotTo(HaveOccurred())
		thumb, err := store.Get(created.ThumbnailFilename)
		Expect(err).NotTo(HaveOccurred())
		cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("jpeg"))
		Expect(cfg.Height).To(Equal(scanning.DefaultThumbnailSize))
	})

	It("should review and delete a weak receipt", func() {
		scanner.text = "Thanks for visiting"
		ghServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)

		created := upload()
		Expect(created.NeedsReview).To(BeTrue())

		resp, err := http.Get(ghServer.URL() + "/api/receipts?needs_review=true")
		Expect(err).NotTo(HaveOccurred())
		var pending []receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&pending)).To(Succeed())
		resp.Body.Close()
		Expect(pending).To(HaveLen(1))

		req, err := http.NewRequest(http.MethodPatch, ghServer.URL()+"/api/receipts/"+created.ID,
			strings.NewReader(`{"vendor_name":"Museum Cafe","amount":1250,"date":"2024-04-10"}`))
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		reviewed, err := db.GetReceipt(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviewed.VendorName).To(Equal("Museum Cafe"))
		Expect(reviewed.NeedsReview).To(BeFalse())
		Expect(reviewed.Extracted).NotTo(BeNil())
		Expect(reviewed.Extracted.VendorName).To(HaveValue(Equal("Thanks for visiting")))

		resp, err = http.Get(ghServer.URL() + "/api/receipts?needs_review=true")
		Expect(err).NotTo(HaveOccurred())
		pending = nil
		Expect(json.NewDecoder(resp.Body).Decode(&pending)).To(Succeed())
		resp.Body.Close()
		Expect(pending).To(BeEmpty())

		req, err = http.NewRequest(http.MethodDelete, ghServer.URL()+"/api/receipts/"+created.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		_, err = db.GetReceipt(created.ID)
		Expect(err).To(MatchError(receipt.ErrNotFound))
		_, err = store.Get(created.Filename)
		Expect(err).To(MatchError(receipt.ErrNotFound))
	})
})
