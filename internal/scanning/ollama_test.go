package scanning

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	return img
}

func testPNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func testJPEG() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		ollama  *Ollama
		request ollamaChatRequest
		reply   string
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		request = ollamaChatRequest{}
		reply = ""

		var err error
		ollama, err = NewOllamaWithClient(server.URL(), "llava", http.DefaultClient)
		Expect(err).NotTo(HaveOccurred())

		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest("POST", "/api/chat"),
			ghttp.VerifyContentType("application/json"),
			func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&request)).To(Succeed())
				w.Header().Set("Content-Type", "application/json")
				Expect(json.NewEncoder(w).Encode(ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: reply},
					Done:    true,
				})).To(Succeed())
			},
		))
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("ScanReceipt", func() {
		var (
			items []parsing.LineItem
			err   error
		)

		BeforeEach(func() {
			reply = `[{"Date": "2025-06-29", "Ingredient": "Whole Milk", "Quantity": "2 PT", "Price": "2.40", "Notes": ""}]`
		})

		JustBeforeEach(func() {
			items, err = ollama.ScanReceipt(testPNG(), "image/png")
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the parsed items", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Ingredient).To(Equal("Whole Milk"))
		})

		It("should send the configured model", func() {
			Expect(request.Model).To(Equal("llava"))
			Expect(request.Stream).To(BeFalse())
		})

		It("should attach the image to the user message", func() {
			Expect(request.Messages).To(HaveLen(2))
			Expect(request.Messages[1].Role).To(Equal("user"))
			Expect(request.Messages[1].Content).To(Equal(itemsPrompt))
			Expect(request.Messages[1].Images).To(HaveLen(1))
		})
	})

	Describe("RecognizeText", func() {
		var (
			fragments []Fragment
			err       error
		)

		BeforeEach(func() {
			reply = `[{"text": "Whole Milk 2.40", "confidence": 0.97, "top": 0.12}]`
		})

		JustBeforeEach(func() {
			fragments, err = ollama.RecognizeText(testPNG(), "")
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the fragments", func() {
			Expect(fragments).To(Equal([]Fragment{{Text: "Whole Milk 2.40", Confidence: 0.97, Top: 0.12}}))
		})

		It("should use the text recognition prompt", func() {
			Expect(request.Messages[1].Content).To(Equal(fragmentsPrompt))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.SetHandler(0, ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			_, err := ollama.ScanReceipt(testPNG(), "image/png")
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})
})

var _ = Describe("prepareImageData", func() {
	When("the data is already PNG", func() {
		It("should pass it through", func() {
			data := testPNG()
			out, err := prepareImageData(data, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the content type is missing", func() {
		It("should sniff the format", func() {
			data := testPNG()
			out, err := prepareImageData(data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the data is JPEG", func() {
		It("should convert it to PNG", func() {
			out, err := prepareImageData(testJPEG(), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			_, format, err := image.Decode(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the data is not an image", func() {
		It("returns the error", func() {
			_, err := prepareImageData([]byte("plain text"), "text/plain")
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("isHEIC", func() {
	It("should recognize a HEIC ftyp box", func() {
		Expect(isHEIC([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"))).To(BeTrue())
	})

	It("should reject short data", func() {
		Expect(isHEIC([]byte("ftyp"))).To(BeFalse())
	})

	It("should reject other brands", func() {
		Expect(isHEIC([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00"))).To(BeFalse())
	})
})
