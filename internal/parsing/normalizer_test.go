package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalizer", func() {
	var normalizer *Normalizer

	BeforeEach(func() {
		normalizer = NewNormalizer(DefaultVocabulary())
	})

	Describe("Quantity", func() {
		DescribeTable("rewriting unit spellings",
			func(raw, expected string) {
				Expect(normalizer.Quantity(raw)).To(Equal(expected))
			},
			Entry("empty", "", "1"),
			Entry("whitespace", "   ", "1"),
			Entry("bare count", "3", "3"),
			Entry("multiplier", "2 x", "2 x"),
			Entry("upper-case grams", "500G", "500g"),
			Entry("pints", "2 pt", "2 PT"),
			Entry("millilitres", "500ml", "500mL"),
			Entry("litres", "1 l", "1 L"),
			Entry("packaging stays lower-case", "6 PACK", "6 pack"),
			Entry("plural packaging is not mangled", "2 bottles", "2 bottles"),
			Entry("unknown words pass through", "3 tins", "3 tins"),
			Entry("extra spacing collapses", "2   kg", "2 kg"),
		)
	})

	Describe("Price", func() {
		DescribeTable("formatting prices",
			func(raw, expected string) {
				Expect(normalizer.Price(raw)).To(Equal(expected))
			},
			Entry("already formatted", "2.40", "2.40"),
			Entry("one fraction digit", "2.4", "2.40"),
			Entry("whole number", "3", "3.00"),
			Entry("currency glyph", "£3", "3.00"),
			Entry("glyph and whitespace", " $ 1.25 ", "1.25"),
			Entry("rounding", "1.999", "2.00"),
			Entry("leading point", ".5", "0.50"),
			Entry("empty", "", "0.00"),
			Entry("text", "abc", "0.00"),
			Entry("two decimal points", "1.2.3", "0.00"),
			Entry("negative", "-1.00", "0.00"),
			Entry("exponent", "1e3", "0.00"),
		)
	})

	Describe("Ingredient", func() {
		DescribeTable("canonicalizing names",
			func(raw, expected string) {
				Expect(normalizer.Ingredient(raw)).To(Equal(expected))
			},
			Entry("empty", "", "Unknown Item"),
			Entry("whitespace", "  ", "Unknown Item"),
			Entry("title case", "tea bags", "Tea Bags"),
			Entry("shouting", "CHICKEN", "Chicken"),
			Entry("keeps other words", "whole milk", "Whole Milk"),
			Entry("dictionary word in longer name", "organic chicken breast", "Organic Chicken Breast"),
			Entry("compound word is not a dictionary word", "buttermilk", "Buttermilk"),
		)

		When("two dictionary entries match the same word", func() {
			BeforeEach(func() {
				normalizer = NewNormalizer(Vocabulary{
					Groceries: []Grocery{
						{Term: "MILK", Display: "Milk"},
						{Term: "milk", Display: "Dairy Milk"},
					},
				})
			})

			It("uses the first entry", func() {
				Expect(normalizer.Ingredient("milk")).To(Equal("Milk"))
			})
		})

		When("different dictionary terms appear in one name", func() {
			It("gives the same result in either order", func() {
				forward := NewNormalizer(Vocabulary{Groceries: []Grocery{
					{Term: "chicken", Display: "Chicken"},
					{Term: "rice", Display: "Rice"},
				}})
				reversed := NewNormalizer(Vocabulary{Groceries: []Grocery{
					{Term: "rice", Display: "Rice"},
					{Term: "chicken", Display: "Chicken"},
				}})
				Expect(forward.Ingredient("CHICKEN FRIED RICE")).To(Equal("Chicken Fried Rice"))
				Expect(reversed.Ingredient("CHICKEN FRIED RICE")).To(Equal("Chicken Fried Rice"))
			})
		})
	})

	Describe("Normalize", func() {
		var (
			raw  RawItem
			item LineItem
		)

		JustBeforeEach(func() {
			item = normalizer.Normalize(raw)
		})

		When("every field is unusable", func() {
			BeforeEach(func() {
				raw = RawItem{Date: "2025-06-29", Price: "n/a"}
			})

			It("should fall back to the placeholder name", func() {
				Expect(item.Ingredient).To(Equal("Unknown Item"))
			})

			It("should fall back to a quantity of one", func() {
				Expect(item.Quantity).To(Equal("1"))
			})

			It("should fall back to a zero price", func() {
				Expect(item.Price).To(Equal("0.00"))
			})

			It("should keep the date", func() {
				Expect(item.Date).To(Equal("2025-06-29"))
			})
		})

		When("fields are usable", func() {
			BeforeEach(func() {
				raw = RawItem{Date: "2025-06-29", Name: "Chicken", Quantity: "500G", Price: "£4.99", Notes: " reduced "}
			})

			It("should normalize every field", func() {
				Expect(item).To(Equal(LineItem{
					Date:       "2025-06-29",
					Ingredient: "Chicken",
					Quantity:   "500g",
					Price:      "4.99",
					Notes:      "reduced",
				}))
			})
		})
	})

	DescribeTable("normalizing twice changes nothing",
		func(raw RawItem) {
			once := normalizer.Normalize(raw)
			twice := normalizer.Normalize(RawItem{
				Date:     once.Date,
				Name:     once.Ingredient,
				Quantity: once.Quantity,
				Price:    once.Price,
				Notes:    once.Notes,
			})
			Expect(twice).To(Equal(once))
		},
		Entry("plain", RawItem{Name: "Whole Milk", Quantity: "1", Price: "2.40"}),
		Entry("units", RawItem{Name: "semi skimmed milk", Quantity: "2 pt", Price: "1.4"}),
		Entry("volume", RawItem{Name: "olive oil", Quantity: "500ML", Price: "$6"}),
		Entry("empty", RawItem{}),
		Entry("garbage", RawItem{Name: "  ", Quantity: "  ", Price: "x.y"}),
	)
})
