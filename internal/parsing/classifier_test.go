package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classifier", func() {
	var (
		classifier *Classifier
		line       string
		result     bool
	)

	BeforeEach(func() {
		classifier = NewClassifier(DefaultVocabulary())
	})

	JustBeforeEach(func() {
		result = classifier.IsBoilerplate(line)
	})

	When("the line is empty", func() {
		BeforeEach(func() {
			line = ""
		})

		It("is boilerplate", func() {
			Expect(result).To(BeTrue())
		})
	})

	When("the line is only whitespace", func() {
		BeforeEach(func() {
			line = "  \t "
		})

		It("is boilerplate", func() {
			Expect(result).To(BeTrue())
		})
	})

	DescribeTable("keyword lines",
		func(input string) {
			Expect(classifier.IsBoilerplate(input)).To(BeTrue())
		},
		Entry("subtotal", "Subtotal: 12.00"),
		Entry("total", "TOTAL 5.60"),
		Entry("footer", "Thank you for shopping"),
		Entry("store header", "GROCERY STORE"),
		Entry("vat", "VAT @ 20% 1.12"),
		Entry("payment", "Card payment 14.30"),
		Entry("cashier", "Cashier: Sam"),
		Entry("discount", "Multibuy discount 0.50"),
	)

	DescribeTable("item lines",
		func(input string) {
			Expect(classifier.IsBoilerplate(input)).To(BeFalse())
		},
		Entry("plain item", "Whole Milk 2.40"),
		Entry("multiplier", "2 x Bread 3.20"),
		Entry("weight", "500g Organic Chicken 4.99"),
		Entry("no price", "weird-line-no-price"),
	)

	When("the keyword is embedded in another word", func() {
		BeforeEach(func() {
			line = "Tortilla Wraps 1.50"
		})

		It("still filters the line", func() {
			Expect(result).To(BeTrue())
		})
	})

	When("using a custom vocabulary", func() {
		BeforeEach(func() {
			classifier = NewClassifier(Vocabulary{BoilerplateKeywords: []string{"  Summe ", ""}})
		})

		When("the line contains the custom keyword", func() {
			BeforeEach(func() {
				line = "SUMME 5.00"
			})

			It("is boilerplate", func() {
				Expect(result).To(BeTrue())
			})
		})

		When("the line contains a default keyword only", func() {
			BeforeEach(func() {
				line = "Total 5.00"
			})

			It("is not boilerplate", func() {
				Expect(result).To(BeFalse())
			})
		})
	})
})
