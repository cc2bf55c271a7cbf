package receipt

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Confidence", func() {
	It("reports a measured score", func() {
		score, ok := Measured(0.87).Score()
		Expect(ok).To(BeTrue())
		Expect(score).To(Equal(0.87))
		Expect(Measured(0.87).IsHeuristic()).To(BeFalse())
	})

	It("has no score when heuristic", func() {
		_, ok := HeuristicGuess().Score()
		Expect(ok).To(BeFalse())
		Expect(HeuristicGuess().IsHeuristic()).To(BeTrue())
	})

	DescribeTable("String and ParseConfidence",
		func(c Confidence, text string) {
			Expect(c.String()).To(Equal(text))
			parsed, err := ParseConfidence(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(c))
		},
		Entry("measured", Measured(0.91), "0.91"),
		Entry("zero", Measured(0), "0"),
		Entry("heuristic", HeuristicGuess(), "heuristic"),
	)

	It("rejects unparseable text", func() {
		_, err := ParseConfidence("high")
		Expect(err).To(HaveOccurred())
	})

	Describe("JSON", func() {
		It("writes a number for measured confidence", func() {
			data, err := json.Marshal(Measured(0.5))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("0.5"))
		})

		It("writes a label for heuristic confidence", func() {
			data, err := json.Marshal(HeuristicGuess())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(`"heuristic"`))
		})

		It("reads both forms back", func() {
			var got struct {
				A Confidence `json:"a"`
				B Confidence `json:"b"`
			}
			Expect(json.Unmarshal([]byte(`{"a": 0.25, "b": "heuristic"}`), &got)).To(Succeed())
			Expect(got.A).To(Equal(Measured(0.25)))
			Expect(got.B).To(Equal(HeuristicGuess()))
		})

		It("rejects unknown labels", func() {
			var c Confidence
			Expect(json.Unmarshal([]byte(`"guess"`), &c)).NotTo(Succeed())
		})
	})
})
