package driver_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/driver"
)

var _ = Describe("ReadInteractive", func() {
	It("reads a level count followed by four ints per level", func() {
		input := "2\n32 4 32 0\n256 8 64 1\n"
		specs, err := driver.ReadInteractive(strings.NewReader(input), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(specs).To(Equal([]driver.LevelSpec{
			{SizeKB: 32, Associativity: 4, BlockSize: 32, WriteThrough: false},
			{SizeKB: 256, Associativity: 8, BlockSize: 64, WriteThrough: true},
		}))
	})

	It("rejects a level count outside [1,3]", func() {
		_, err := driver.ReadInteractive(strings.NewReader("4\n"), nil)
		Expect(err).To(HaveOccurred())
	})

	It("rejects truncated input", func() {
		_, err := driver.ReadInteractive(strings.NewReader("1\n32 4"), nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadLevelSpecs and SaveLevelSpecs", func() {
	It("round-trips through a JSON file", func() {
		dir := GinkgoT().TempDir()
		path := dir + "/levels.json"

		specs := []driver.LevelSpec{
			{SizeKB: 32, Associativity: 4, BlockSize: 32, WriteThrough: false},
			{SizeKB: 256, Associativity: 8, BlockSize: 64, WriteThrough: true},
		}

		Expect(driver.SaveLevelSpecs(path, specs)).To(Succeed())

		loaded, err := driver.LoadLevelSpecs(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(specs))
	})

	It("rejects a file with too many levels", func() {
		dir := GinkgoT().TempDir()
		path := dir + "/levels.json"

		specs := make([]driver.LevelSpec, 4)
		for i := range specs {
			specs[i] = driver.LevelSpec{SizeKB: 32, Associativity: 4, BlockSize: 32}
		}
		Expect(driver.SaveLevelSpecs(path, specs)).To(Succeed())

		_, err := driver.LoadLevelSpecs(path)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BuildHierarchy", func() {
	It("builds one cache per level plus a shared memory leaf", func() {
		specs := []driver.LevelSpec{
			{SizeKB: 32, Associativity: 4, BlockSize: 32, WriteThrough: false},
			{SizeKB: 256, Associativity: 8, BlockSize: 64, WriteThrough: true},
		}
		levels, mem, err := driver.BuildHierarchy(specs, driver.DefaultBypassMask)
		Expect(err).NotTo(HaveOccurred())
		Expect(levels).To(HaveLen(2))
		Expect(mem).NotTo(BeNil())
	})

	It("rejects a cache size with no defined latency table entry", func() {
		specs := []driver.LevelSpec{
			{SizeKB: 17, Associativity: 4, BlockSize: 32, WriteThrough: false},
		}
		_, _, err := driver.BuildHierarchy(specs, 0)
		Expect(err).To(HaveOccurred())
	})

	It("rejects more than three levels", func() {
		specs := make([]driver.LevelSpec, 4)
		for i := range specs {
			specs[i] = driver.LevelSpec{SizeKB: 32, Associativity: 4, BlockSize: 32}
		}
		_, _, err := driver.BuildHierarchy(specs, 0)
		Expect(err).To(HaveOccurred())
	})
})
