package scanning

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("prepareImageData", func() {
	When("the image is a small PNG", func() {
		It("should return the original bytes", func() {
			data := pngFixture(40, 20)
			out, err := prepareImageData(data, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the image is larger than the scan limit", func() {
		It("should downscale the long side to the limit", func() {
			out, err := prepareImageData(pngFixture(3000, 1500), "image/png")
			Expect(err).NotTo(HaveOccurred())

			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Width).To(Equal(MaxScanDimension))
			Expect(cfg.Height).To(Equal(1000))
		})
	})

	When("the image is a JPEG", func() {
		It("should convert it to PNG", func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)), nil)).To(Succeed())

			out, err := prepareImageData(buf.Bytes(), "IMAGE/JPEG; charset=binary")
			Expect(err).NotTo(HaveOccurred())
			_, format, err := image.DecodeConfig(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the data is not an image", func() {
		It("returns the error", func() {
			_, err := prepareImageData([]byte("not an image"), "image/jpeg")
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("Thumbnail", func() {
	It("should fit the image inside the box as a JPEG", func() {
		out, err := Thumbnail(pngFixture(900, 600), "image/png", 300)
		Expect(err).NotTo(HaveOccurred())

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("jpeg"))
		Expect(cfg.Width).To(Equal(300))
		Expect(cfg.Height).To(Equal(200))
	})

	It("should not enlarge small images", func() {
		out, err := Thumbnail(pngFixture(50, 80), "image/png", 0)
		Expect(err).NotTo(HaveOccurred())

		cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Width).To(Equal(50))
		Expect(cfg.Height).To(Equal(80))
	})

	It("returns the error for undecodable data", func() {
		_, err := Thumbnail([]byte{0x00, 0x01}, "image/png", 300)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("HEIC detection", func() {
	It("should recognize the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should not match short or other data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
		Expect(isHEICFormat(pngFixture(1, 1))).To(BeFalse())
	})

	It("should recognize HEIC and HEIF MIME types", func() {
		Expect(isHEICMimeType(" image/HEIC ")).To(BeTrue())
		Expect(isHEICMimeType("image/heif")).To(BeTrue())
		Expect(isHEICMimeType("image/jpeg")).To(BeFalse())
	})
})
