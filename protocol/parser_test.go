package protocol_test

import (
	"bytes"
	"errors"
	"strconv"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/cmdmgr/protocol"
)

func parse(h *protocol.History, input string) string {
	var out bytes.Buffer
	Expect(protocol.Parse(&out, h, input)).To(Succeed())
	return out.String()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink is gone")
}

var _ = Describe("Parsing", func() {
	var h *protocol.History

	BeforeEach(func() {
		h = protocol.NewHistory()
	})

	Describe("framing", func() {
		DescribeTable("silently drops badly framed input",
			func(input string) {
				h.Record(protocol.UserMessage)
				before := h.Entries()

				Expect(parse(h, input)).To(BeEmpty())
				Expect(h.Entries()).To(Equal(before))
				Expect(protocol.Decode(h, input)).To(Equal(protocol.Result{}))
			},
			Entry("empty input", ""),
			Entry("no sentinel", "RUN_NO____123"),
			Entry("too short", "RUN_NO___#"),
			Entry("just the sentinel", "#"),
			Entry("sentinel not last", "USR_MSG___hello#\n"),
		)

		It("accepts an opcode with an empty payload", func() {
			Expect(parse(h, "USR_MSG___#")).To(Equal("\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.UserMessage}))
		})

		It("only strips a single trailing sentinel", func() {
			Expect(parse(h, "USR_MSG___a#b##")).To(Equal("a#b#\n"))
			Expect(parse(h, "RUN_NO____12##")).To(Equal("Invalid Run number: 12#\n"))
		})
	})

	Describe("RUN_NO____", func() {
		It("prints the run number", func() {
			Expect(parse(h, "RUN_NO____123#")).To(Equal("Run number: 123\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.RunNumber}))
		})

		DescribeTable("accepts signed decimal integers",
			func(payload, expected string) {
				Expect(parse(h, "RUN_NO____"+payload+"#")).To(Equal("Run number: " + expected + "\n"))
			},
			Entry("negative", "-42", "-42"),
			Entry("explicit plus", "+7", "7"),
			Entry("zero", "0", "0"),
			Entry("leading zeros", "007", "7"),
		)

		DescribeTable("reports invalid payloads and still records the opcode",
			func(payload string) {
				Expect(parse(h, "RUN_NO____"+payload+"#")).To(Equal("Invalid Run number: " + payload + "\n"))
				Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.RunNumber}))
			},
			Entry("letters", "ABC"),
			Entry("empty", ""),
			Entry("trailing garbage", "12abc"),
			Entry("leading space", " 12"),
			Entry("decimal point", "1.5"),
			Entry("overflow", "99999999999999999999999"),
		)

		It("round trips every representable integer", func() {
			for _, n := range []int{0, 1, -1, 2147483647, -2147483648, int(^uint(0) >> 1), -int(^uint(0)>>1) - 1} {
				s := strconv.Itoa(n)
				Expect(parse(h, "RUN_NO____"+s+"#")).To(Equal("Run number: " + s + "\n"))
			}
		})
	})

	Describe("POLAR_NO__", func() {
		It("prints the polar number", func() {
			parse(h, "RUN_NO____123#")
			Expect(parse(h, "POLAR_NO__2#")).To(Equal("Polar number: 2\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.PolarNumber, protocol.RunNumber}))
		})

		It("reports an invalid polar number and records the opcode", func() {
			Expect(parse(h, "POLAR_NO__x#")).To(Equal("Invalid Polar number: x\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.PolarNumber}))
		})
	})

	Describe("USR_MSG___", func() {
		It("echoes the payload verbatim", func() {
			Expect(parse(h, "USR_MSG___Start Tunnel#")).To(Equal("Start Tunnel\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.UserMessage}))
		})
	})

	Describe("D_USR_FLD_", func() {
		It("prints every parameter pair", func() {
			out := parse(h, "D_USR_FLD_Parameter1,0.004947,Parameter2,0.203044,#")
			Expect(out).To(Equal("Parameters:\nParameter1 = 0.004947\nParameter2 = 0.203044\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.UserFields}))
		})

		It("formats values with the shortest representation", func() {
			out := parse(h, "D_USR_FLD_a,2.500,b,1e3,c,-0.12343044#")
			Expect(out).To(Equal("Parameters:\na = 2.5\nb = 1000\nc = -0.12343044\n"))
		})

		It("drops a list with an odd number of tokens", func() {
			Expect(parse(h, "D_USR_FLD_Parameter1,0.1,Parameter2,#")).To(BeEmpty())
			Expect(h.Len()).To(Equal(0))
		})

		It("ignores empty tokens before pairing", func() {
			Expect(parse(h, "D_USR_FLD_,a,,1,,#")).To(Equal("Parameters:\na = 1\n"))
		})

		It("prints only the header for an empty list", func() {
			Expect(parse(h, "D_USR_FLD_#")).To(Equal("Parameters:\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.UserFields}))
		})

		It("skips parameters whose name is too long", func() {
			out := parse(h, "D_USR_FLD_ThisNameIsWayTooLong,1,Fifteen_Chars_X,2,#")
			Expect(out).To(Equal("Parameters:\nParameter name too long: ThisNameIsWayTooLong\nFifteen_Chars_X = 2\n"))
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.UserFields}))
		})

		DescribeTable("reports values that are not finite decimals",
			func(value string) {
				out := parse(h, "D_USR_FLD_p,"+value+",q,1#")
				Expect(out).To(Equal("Parameters:\nInvalid parameter value for parameter: p\nq = 1\n"))
				Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.UserFields}))
			},
			Entry("letters", "abc"),
			Entry("trailing garbage", "1.5x"),
			Entry("not a number", "NaN"),
			Entry("infinity", "Inf"),
			Entry("hex float", "0x1p-2"),
			Entry("out of range", "1e400"),
			Entry("space", " 1"),
		)

		It("still records the opcode when every pair is skipped", func() {
			Expect(parse(h, "D_USR_FLD_p,x,ThisNameIsWayTooLong,1#")).To(Equal(
				"Parameters:\nInvalid parameter value for parameter: p\nParameter name too long: ThisNameIsWayTooLong\n"))
			Expect(h.Len()).To(Equal(1))
		})
	})

	Describe("ParseFields()", func() {
		It("pairs tokens in order", func() {
			fields, err := protocol.ParseFields("a,1,b,2,")
			Expect(err).To(Succeed())
			Expect(fields).To(Equal([]protocol.Field{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}))
		})

		It("returns ErrOddFieldCount for a dangling name", func() {
			_, err := protocol.ParseFields("a,1,b")
			Expect(errors.Is(err, protocol.ErrOddFieldCount)).To(BeTrue())
		})
	})

	Describe("HISTORY___", func() {
		It("prints nothing when the history is empty", func() {
			Expect(parse(h, "HISTORY___#")).To(BeEmpty())
		})

		It("prints the recorded opcodes newest first without recording itself", func() {
			parse(h, "RUN_NO____123#")
			parse(h, "POLAR_NO__2#")
			parse(h, "USR_MSG___Start Tunnel#")

			expected := "USR_MSG___\nPOLAR_NO__\nRUN_NO____\n"
			Expect(parse(h, "HISTORY___#")).To(Equal(expected))
			Expect(parse(h, "HISTORY___#")).To(Equal(expected))
			Expect(h.Entries()).NotTo(ContainElement(protocol.HistoryQuery))
		})

		It("ignores its payload", func() {
			parse(h, "RUN_NO____1#")
			Expect(parse(h, "HISTORY___whatever#")).To(Equal("RUN_NO____\n"))
		})

		It("shows only the five most recent opcodes", func() {
			parse(h, "D_USR_FLD_a,1#")
			parse(h, "RUN_NO____1#")
			parse(h, "POLAR_NO__2#")
			parse(h, "USR_MSG___hi#")
			parse(h, "RUN_NO____2#")
			parse(h, "POLAR_NO__3#")

			Expect(parse(h, "HISTORY___#")).To(Equal(
				"POLAR_NO__\nRUN_NO____\nUSR_MSG___\nPOLAR_NO__\nRUN_NO____\n"))
			Expect(h.Entries()).NotTo(ContainElement(protocol.UserFields))
		})
	})

	Describe("unknown opcodes", func() {
		It("are ignored", func() {
			parse(h, "RUN_NO____1#")

			Expect(parse(h, "UNKNOWN___test#")).To(BeEmpty())
			Expect(h.Entries()).To(Equal([]protocol.Opcode{protocol.RunNumber}))
		})

		It("are framed but not recorded", func() {
			res := protocol.Decode(h, "UNKNOWN___test#")
			Expect(res.Framed).To(BeTrue())
			Expect(res.Opcode).To(Equal(protocol.Unknown))
			Expect(res.Prefix).To(Equal("UNKNOWN___"))
			Expect(res.Recorded).To(BeFalse())
		})
	})

	It("keeps the history bounded and clean across mixed traffic", func() {
		inputs := []string{
			"RUN_NO____1#", "HISTORY___#", "UNKNOWN___x#", "D_USR_FLD_a#",
			"POLAR_NO__z#", "USR_MSG___m#", "D_USR_FLD_a,1#", "RUN_NO____2",
			"HISTORY___#", "RUN_NO____3#", "POLAR_NO__4#", "XXXXXXXXXX#",
		}

		for _, input := range inputs {
			parse(h, input)

			Expect(h.Len()).To(BeNumerically("<=", protocol.HistorySize))
			for _, op := range h.Entries() {
				Expect(op.IsData()).To(BeTrue())
			}
		}
	})

	It("returns the sink error when writing fails", func() {
		err := protocol.Parse(failingWriter{}, h, "USR_MSG___hi#")
		Expect(err).To(MatchError("sink is gone"))
		Expect(h.Len()).To(Equal(1))
	})

	It("does not touch the sink for rejected frames", func() {
		Expect(protocol.Parse(failingWriter{}, h, "USR_MSG___hi")).To(Succeed())
	})

	Describe("RemoveTrailingCR()", func() {
		It("does nothing if the line does not end in CR", func() {
			Expect(protocol.RemoveTrailingCR("RUN_NO____1#")).To(Equal("RUN_NO____1#"))
		})

		It("removes the trailing CR", func() {
			Expect(protocol.RemoveTrailingCR("RUN_NO____1#\r")).To(Equal("RUN_NO____1#"))
		})
	})
})
