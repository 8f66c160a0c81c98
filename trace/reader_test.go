package trace_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/cachesim/trace"
)

const sampleTrace = `I 0400d7d4,8
 M 0421c7f0,4
 L 04f6b868,8

 S 7ff0005c8,8
I 0400d7d8,4
`

var _ = Describe("Reader", func() {
	It("should stream data records in file order and skip fetches", func() {
		r := trace.NewReader(strings.NewReader(sampleTrace))

		records, err := trace.ReadAll(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]trace.Record{
			{Op: trace.OpModify, Address: 0x0421c7f0, Size: 4, Line: 2},
			{Op: trace.OpLoad, Address: 0x04f6b868, Size: 8, Line: 3},
			{Op: trace.OpStore, Address: 0x7ff0005c8, Size: 8, Line: 5},
		}))
		Expect(r.Skipped()).To(Equal(uint64(2)))
		Expect(r.Lines()).To(Equal(6))
		Expect(r.Malformed()).To(BeZero())
	})

	It("should keep returning io.EOF at the end", func() {
		r := trace.NewReader(strings.NewReader(""))

		_, err := r.Next()
		Expect(err).To(Equal(io.EOF))
		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	Context("with the abort policy", func() {
		It("should stop at the first malformed record", func() {
			src := " L 10,4\n L zz,4\n L 20,4\n"
			r := trace.NewReader(strings.NewReader(src))

			rec, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Address).To(Equal(uint64(0x10)))

			_, err = r.Next()
			var perr *trace.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Line).To(Equal(2))
			Expect(perr.Text).To(Equal(" L zz,4"))
			Expect(err).To(MatchError(trace.ErrMalformed))

			_, again := r.Next()
			Expect(again).To(Equal(err))
		})

		It("should fail on an unknown operation", func() {
			r := trace.NewReader(strings.NewReader(" Q 10,4\n"))

			_, err := trace.ReadAll(r)
			Expect(err).To(MatchError(trace.ErrUnknownOp))
		})
	})

	Context("with the skip policy", func() {
		It("should log and drop malformed records", func() {
			logger, hook := test.NewNullLogger()
			src := " L 10,4\n L zz,4\n Q 1,1\n L 20\n S 20,4\n"
			r := trace.NewReader(strings.NewReader(src),
				trace.WithPolicy(trace.PolicySkip),
				trace.WithLogger(logger))

			records, err := trace.ReadAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[1].Op).To(Equal(trace.OpStore))
			Expect(records[1].Line).To(Equal(5))
			Expect(r.Malformed()).To(Equal(uint64(3)))

			Expect(hook.AllEntries()).To(HaveLen(3))
			Expect(hook.LastEntry().Level).To(Equal(logrus.WarnLevel))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("line", 4))
		})
	})

	Describe("ParsePolicy", func() {
		It("should parse known names", func() {
			p, err := trace.ParsePolicy("skip")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(trace.PolicySkip))

			p, err = trace.ParsePolicy("")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(trace.PolicyAbort))

			_, err = trace.ParsePolicy("ignore")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Open", func() {
		It("should read a trace file from disk", func() {
			path := filepath.Join(GinkgoT().TempDir(), "yi.trace")
			Expect(os.WriteFile(path, []byte(sampleTrace), 0o644)).To(Succeed())

			r, err := trace.Open(path)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = r.Close() }()

			records, err := trace.ReadAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(r.Close()).To(Succeed())
		})

		It("should report a missing file", func() {
			_, err := trace.Open(filepath.Join(GinkgoT().TempDir(), "missing"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})
})
