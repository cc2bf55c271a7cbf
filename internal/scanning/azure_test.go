package scanning

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

const analyzePath = "/formrecognizer/documentModels/prebuilt-receipt:analyze"

const succeededOperation = `{
  "status": "succeeded",
  "analyzeResult": {
    "apiVersion": "2023-07-31",
    "modelId": "prebuilt-receipt",
    "content": "JOE'S DINER\nBurger 12.00\nTotal 12.96",
    "documents": [{
      "docType": "receipt.retailMeal",
      "confidence": 0.98,
      "fields": {
        "MerchantName": {"type": "string", "valueString": "Joe's Diner", "confidence": 0.91},
        "TransactionDate": {"type": "date", "valueDate": "2024-03-01", "content": "03/01/2024", "confidence": 0.95},
        "TransactionTime": {"type": "time", "valueTime": "12:30:00", "confidence": 0.9},
        "Subtotal": {"type": "currency", "valueCurrency": {"amount": 12.0, "currencySymbol": "$"}, "confidence": 0.97},
        "TotalTax": {"type": "number", "valueNumber": 0.96, "confidence": 0.96},
        "Total": {"type": "currency", "valueCurrency": {"amount": 12.96}, "confidence": 0.99},
        "Items": {"type": "array", "valueArray": [
          {"type": "object", "valueObject": {
            "Description": {"type": "string", "valueString": "Burger", "confidence": 0.9},
            "TotalPrice": {"type": "currency", "valueCurrency": {"amount": 12.0}, "confidence": 0.9},
            "Quantity": {"type": "number", "valueInteger": 1, "confidence": 0.8}
          }}
        ]}
      }
    }]
  }
}`

var _ = Describe("Azure", func() {
	var (
		server *ghttp.Server
		azure  *Azure
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		DeferCleanup(server.Close)

		var err error
		azure, err = NewAzure(AzureConfig{
			Endpoint:     server.URL() + "/",
			Key:          "secret",
			PollInterval: time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	accepted := func() http.HandlerFunc {
		return ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, analyzePath, "api-version=2023-07-31"),
			ghttp.VerifyHeaderKV("Ocp-Apim-Subscription-Key", "secret"),
			ghttp.VerifyHeaderKV("Content-Type", "image/jpeg"),
			ghttp.VerifyBody([]byte("jpeg bytes")),
			func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Operation-Location", server.URL()+"/operations/1")
				w.WriteHeader(http.StatusAccepted)
			},
		)
	}

	Describe("NewAzure", func() {
		It("requires an endpoint and a key", func() {
			_, err := NewAzure(AzureConfig{Endpoint: "https://example"})
			Expect(err).To(HaveOccurred())
			_, err = NewAzure(AzureConfig{Key: "k"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Analyze", func() {
		When("the operation succeeds after running", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					accepted(),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest(http.MethodGet, "/operations/1"),
						ghttp.VerifyHeaderKV("Ocp-Apim-Subscription-Key", "secret"),
						ghttp.RespondWith(http.StatusOK, `{"status": "running"}`),
					),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest(http.MethodGet, "/operations/1"),
						ghttp.RespondWith(http.StatusOK, succeededOperation),
					),
				)
			})

			It("polls until done and converts the fields", func() {
				result, err := azure.Analyze(context.Background(), []byte("jpeg bytes"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				Expect(server.ReceivedRequests()).To(HaveLen(3))

				Expect(result.ModelID).To(Equal(ReceiptModelID))
				Expect(result.Content).To(HavePrefix("JOE'S DINER"))

				doc := result.Document()
				Expect(doc).NotTo(BeNil())
				Expect(doc.VendorName).To(Equal(Found("Joe's Diner", 0.91)))
				Expect(doc.TransactionDate.Value).To(Equal("2024-03-01"))
				Expect(doc.TransactionTime.Value).To(Equal("12:30:00"))
				Expect(doc.Subtotal).To(Equal(Found(12.0, 0.97)))
				Expect(doc.TotalTax.Value).To(Equal(0.96))
				Expect(doc.Total.Value).To(Equal(12.96))
				Expect(doc.Tip.Found).To(BeFalse())

				Expect(doc.Items).To(HaveLen(1))
				Expect(doc.Items[0].Description.Value).To(Equal("Burger"))
				Expect(doc.Items[0].TotalPrice.Value).To(Equal(12.0))
				Expect(doc.Items[0].Quantity.Value).To(Equal(1.0))
			})
		})

		When("the image holds no receipt", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					accepted(),
					ghttp.RespondWith(http.StatusOK, `{"status": "succeeded", "analyzeResult": {"modelId": "prebuilt-receipt", "content": "", "documents": []}}`),
				)
			})

			It("returns a result without a document", func() {
				result, err := azure.Analyze(context.Background(), []byte("jpeg bytes"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Document()).To(BeNil())
			})
		})

		When("the operation never finishes", func() {
			BeforeEach(func() {
				var err error
				azure, err = NewAzure(AzureConfig{
					Endpoint:     server.URL(),
					Key:          "secret",
					PollInterval: time.Millisecond,
					MaxPolls:     2,
				})
				Expect(err).NotTo(HaveOccurred())
				server.AppendHandlers(
					accepted(),
					ghttp.RespondWith(http.StatusOK, `{"status": "running"}`),
					ghttp.RespondWith(http.StatusOK, `{"status": "running"}`),
				)
			})

			It("gives up after the allowed status checks", func() {
				_, err := azure.Analyze(context.Background(), []byte("jpeg bytes"), "image/jpeg")
				Expect(err).To(MatchError(ContainSubstring("still running after 2 status checks")))
				Expect(server.ReceivedRequests()).To(HaveLen(3))
			})
		})

		When("the operation fails", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					accepted(),
					ghttp.RespondWith(http.StatusOK, `{"status": "failed", "error": {"code": "InvalidImage", "message": "corrupt"}}`),
				)
			})

			It("returns the service error", func() {
				_, err := azure.Analyze(context.Background(), []byte("jpeg bytes"), "image/jpeg")
				Expect(err).To(MatchError(ContainSubstring("InvalidImage")))
			})
		})

		When("the submission is rejected", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"error": {"code": "401"}}`))
			})

			It("returns the status", func() {
				_, err := azure.Analyze(context.Background(), []byte("jpeg bytes"), "image/jpeg")
				Expect(err).To(MatchError(ContainSubstring("status 401")))
			})
		})

		When("the response has no Operation-Location", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusAccepted, ""))
			})

			It("returns an error", func() {
				_, err := azure.Analyze(context.Background(), []byte("jpeg bytes"), "image/jpeg")
				Expect(err).To(MatchError(ContainSubstring("Operation-Location")))
			})
		})
	})
})
