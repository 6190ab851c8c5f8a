package extraction

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("findVendor", func() {
	When("using the strict heuristic", func() {
		It("should skip header noise", func() {
			name, ok := findVendor([]string{
				"RECEIPT",
				"12345",
				"*****",
				"Monday",
				"Joe's Coffee & Tea!",
			}, VendorStrict)
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("Joe's Coffee & Tea"))
		})

		It("should not treat words containing a keyword as noise", func() {
			name, ok := findVendor([]string{"Border Grill"}, VendorStrict)
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("Border Grill"))
		})

		It("should only look at the first five lines", func() {
			_, ok := findVendor([]string{"1", "2", "3", "4", "5", "Late Vendor"}, VendorStrict)
			Expect(ok).To(BeFalse())
		})

		It("should reject very long lines", func() {
			_, ok := findVendor([]string{strings.Repeat("a", 51)}, VendorStrict)
			Expect(ok).To(BeFalse())
		})

		It("should reject lines with ellipses", func() {
			_, ok := findVendor([]string{"Thank you..."}, VendorStrict)
			Expect(ok).To(BeFalse())
		})

		It("should reject lines without letters", func() {
			_, ok := findVendor([]string{"$12.00", "12/01/2024"}, VendorStrict)
			Expect(ok).To(BeFalse())
		})
	})

	When("using the simple heuristic", func() {
		It("should take the first line not starting with a digit", func() {
			name, ok := findVendor([]string{"123 Main St", "Joe's Coffee!"}, VendorSimple)
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("Joe's Coffee!"))
		})

		It("should skip lines with prices or dates", func() {
			name, ok := findVendor([]string{"Total $4.00", "Paid 1/2/2024", "Corner   Deli"}, VendorSimple)
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("Corner Deli"))
		})

		It("should skip very short lines", func() {
			_, ok := findVendor([]string{"ab"}, VendorSimple)
			Expect(ok).To(BeFalse())
		})
	})

	It("should truncate names to 100 characters", func() {
		name, ok := findVendor([]string{strings.Repeat("b", 150)}, VendorSimple)
		Expect(ok).To(BeTrue())
		Expect(name).To(HaveLen(maxVendorLength))
	})
})
