package receipt_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/grocery-receipts/internal/export"
	"github.com/zombor/grocery-receipts/internal/parsing"
	"github.com/zombor/grocery-receipts/internal/receipt"
	"github.com/zombor/grocery-receipts/internal/scanning"
)

// staticRecognizer returns the same fragments for every image
type staticRecognizer struct {
	fragments []scanning.Fragment
}

func (s *staticRecognizer) RecognizeText(imageData []byte, contentType string) ([]scanning.Fragment, error) {
	return s.fragments, nil
}

func (s *staticRecognizer) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir      string
		workbookPath string
		db           *receipt.BoltDB
		store        receipt.Storage
		server       *receipt.Server
		ghServer     *ghttp.Server
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		workbookPath = filepath.Join(tempDir, "groceries.xlsx")

		var err error
		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())

		exporter, err := export.NewWorkbook(workbookPath, "")
		Expect(err).NotTo(HaveOccurred())

		recognizer := &staticRecognizer{fragments: []scanning.Fragment{
			{Text: "FRESH MART", Confidence: 0.98, Top: 0.02},
			{Text: "Whole Milk 2.40", Confidence: 0.95, Top: 0.10},
			{Text: "2 x Bread 3.20", Confidence: 0.93, Top: 0.15},
			{Text: "500g Organic Chicken £4.99", Confidence: 0.91, Top: 0.20},
			{Text: "blurry 9.99", Confidence: 0.2, Top: 0.25},
			{Text: "Subtotal: 10.59", Confidence: 0.97, Top: 0.30},
			{Text: "Thank you for shopping", Confidence: 0.96, Top: 0.40},
		}}

		service := receipt.NewService(db, nil, recognizer, parsing.NewDefault(), exporter, store)
		server = receipt.NewServer(service, receipt.BasicAuth{})
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("should extract, review, submit and record a receipt", func() {
		// One handler per request
		ghServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)

		// Upload
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake jpeg"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.WriteField("method", receipt.MethodOCR)).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/uploads", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var upload receipt.Upload
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(respBody, &upload)).To(Succeed())

		Expect(upload.Status).To(Equal(receipt.StatusReview))
		Expect(upload.Items).To(HaveLen(3))
		Expect(upload.Items[0].Ingredient).To(Equal("Whole Milk"))
		Expect(upload.Items[1].Quantity).To(Equal("2 x"))
		Expect(upload.Items[2].Ingredient).To(Equal("Chicken"))
		Expect(upload.Items[2].Quantity).To(Equal("500g"))
		Expect(upload.Items[2].Price).To(Equal("4.99"))

		_, err = store.Get(upload.Filename)
		Expect(err).NotTo(HaveOccurred())

		// Review: drop the chicken, fix the bread price
		edited := upload.Items[:2]
		edited[1].Price = "3.00"
		payload, err := json.Marshal(map[string][]parsing.LineItem{"items": edited})
		Expect(err).NotTo(HaveOccurred())
		req, err := http.NewRequest("PUT", ghServer.URL()+"/api/uploads/"+upload.ID+"/items", bytes.NewReader(payload))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		// Submit
		resp, err = http.Post(ghServer.URL()+"/api/uploads/"+upload.ID+"/submit", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		var submitted map[string]int
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(respBody, &submitted)).To(Succeed())
		Expect(submitted["rows"]).To(Equal(2))

		saved, err := db.GetUpload(upload.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Status).To(Equal(receipt.StatusSubmitted))

		// History
		resp, err = http.Get(ghServer.URL() + "/api/history")
		Expect(err).NotTo(HaveOccurred())
		var history []receipt.HistoryEntry
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(respBody, &history)).To(Succeed())
		Expect(history).To(HaveLen(1))
		Expect(history[0].ItemsCount).To(Equal(2))
		Expect(history[0].Method).To(Equal(receipt.MethodOCR))

		// Exported rows
		f, err := excelize.OpenFile(workbookPath)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		rows, err := f.GetRows(export.DefaultWorksheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[1]).To(Equal([]string{upload.Items[0].Date, "Whole Milk", "", "", "2.40", "1"}))
		Expect(rows[2]).To(Equal([]string{upload.Items[1].Date, "Bread", "", "", "3.00", "2 x"}))
	})
})
