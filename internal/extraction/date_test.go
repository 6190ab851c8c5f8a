package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("findDate", func() {
	DescribeTable("normalizing dates",
		func(line string, expected string) {
			date, ok := findDate([]string{line})
			Expect(ok).To(BeTrue())
			Expect(date).To(Equal(expected))
		},
		Entry("month first with slashes", "Date: 03/15/2024", "2024-03-15"),
		Entry("day first when the first part exceeds 12", "13/05/2024", "2024-05-13"),
		Entry("dashes", "05-13-2024", "2024-05-13"),
		Entry("dots", "05.13.2024", "2024-05-13"),
		Entry("two digit year below 50", "1/2/24", "2024-01-02"),
		Entry("two digit year from 50", "1/2/99", "1999-01-02"),
		Entry("ISO order", "2024-03-15 14:22", "2024-03-15"),
		Entry("month name", "Mar 15, 2024", "2024-03-15"),
		Entry("full month name with ordinal", "September 3rd 2023", "2023-09-03"),
		Entry("leap day", "02/29/2024", "2024-02-29"),
	)

	DescribeTable("rejecting invalid dates",
		func(line string) {
			_, ok := findDate([]string{line})
			Expect(ok).To(BeFalse())
		},
		Entry("February 30th", "02/30/2024"),
		Entry("month out of range", "13/13/2024"),
		Entry("day zero", "00/10/2024"),
		Entry("non leap year", "02/29/2023"),
		Entry("three digit year", "01/02/202"),
		Entry("no date at all", "Total 12.00"),
	)

	It("should skip an invalid date and use the next valid one", func() {
		date, ok := findDate([]string{"02/30/2024", "Visit 04/01/2024"})
		Expect(ok).To(BeTrue())
		Expect(date).To(Equal("2024-04-01"))
	})

	It("should prefer the earliest line", func() {
		date, ok := findDate([]string{"Jan 5, 2024", "02/06/2024"})
		Expect(ok).To(BeTrue())
		Expect(date).To(Equal("2024-01-05"))
	})
})

var _ = Describe("stripDates", func() {
	It("should blank out date tokens", func() {
		Expect(stripDates("on 03.15.2024 paid 4.50")).NotTo(ContainSubstring("15.20"))
		Expect(stripDates("on 03.15.2024 paid 4.50")).To(ContainSubstring("4.50"))
	})
})
