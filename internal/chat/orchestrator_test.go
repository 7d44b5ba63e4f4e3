package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/commlab/internal/chat"
	"github.com/san-kum/commlab/internal/protocol"
	"github.com/san-kum/commlab/internal/remote"
	"github.com/san-kum/commlab/internal/viz"
)

type recordingArmer struct {
	mu    sync.Mutex
	armed []*protocol.Descriptor
	err   error
}

func (a *recordingArmer) Arm(d *protocol.Descriptor) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.armed = append(a.armed, d)
	return nil
}

func (a *recordingArmer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.armed)
}

const simulatableReply = `调幅信号为 $s(t) = [1 + m\cos(\omega_m t)]\cos(\omega_c t)$。
|||SIM_JSON|||{"isSimulatable": true, "scheme": "AM", "parameters": [{"name": "modIndex", "unit": "", "min": 0, "max": 1, "step": 0.05, "current": 0.8}]}`

var _ = Describe("Orchestrator", func() {
	var (
		calls atomic.Int32
		reply string
		fail  error
		armer *recordingArmer
		orch  *chat.Orchestrator
		ctx   context.Context
	)

	BeforeEach(func() {
		calls.Store(0)
		reply = "Answer text"
		fail = nil
		armer = &recordingArmer{}
		ctx = context.Background()
		inf := remote.Func(func(ctx context.Context, prompt string) (string, error) {
			calls.Add(1)
			if fail != nil {
				return "", fail
			}
			return reply, nil
		})
		orch = chat.New(inf, chat.WithArmer(armer))
	})

	Context("with empty input", func() {
		It("rejects it without touching the transcript or the network", func() {
			for _, in := range []string{"", "   ", "\n\t"} {
				_, err := orch.Ask(ctx, in)
				Expect(err).To(MatchError(chat.ErrEmptyInput))
			}
			Expect(orch.Transcript()).To(BeEmpty())
			Expect(orch.Pending()).To(Equal(0))
			Expect(calls.Load()).To(BeZero())
		})
	})

	Context("when a question begins", func() {
		It("appends the user turn and a pending assistant turn", func() {
			t, err := orch.Begin("什么是调幅?")
			Expect(err).NotTo(HaveOccurred())

			turns := orch.Transcript()
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Role).To(Equal(chat.RoleUser))
			Expect(turns[0].Raw).To(Equal("什么是调幅?"))
			Expect(turns[1].ID).To(Equal(t.PendingID))
			Expect(turns[1].Pending).To(BeTrue())
			Expect(turns[1].Rendered).To(Equal(chat.PendingText))

			Expect(t.Prompt).To(ContainSubstring(protocol.Sentinel))
			Expect(t.Prompt).To(ContainSubstring(`"什么是调幅?"`))
			_, err = uuid.Parse(t.PendingID)
			Expect(err).NotTo(HaveOccurred())
			Expect(calls.Load()).To(BeZero())
		})
	})

	Context("when the remote call succeeds", func() {
		It("replaces the pending turn exactly once", func() {
			out, err := orch.Ask(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Err).NotTo(HaveOccurred())
			Expect(out.Turn.Rendered).To(Equal("Answer text"))
			Expect(out.Armed).To(BeFalse())

			turns := orch.Transcript()
			Expect(turns).To(HaveLen(2))
			Expect(turns[1].Pending).To(BeFalse())
			Expect(turns[1].ID).To(Equal(out.Turn.ID))
			Expect(orch.Pending()).To(Equal(0))
		})

		It("renders math and arms the simulation", func() {
			reply = simulatableReply
			out, err := orch.Ask(ctx, "AM?")
			Expect(err).NotTo(HaveOccurred())

			Expect(out.Turn.Rendered).To(HavePrefix("调幅信号为 s(t) = [1 + m"))
			Expect(out.Turn.Rendered).To(ContainSubstring("ω"))
			Expect(out.Turn.Rendered).NotTo(ContainSubstring("$"))
			Expect(out.Turn.Rendered).NotTo(ContainSubstring(protocol.Sentinel))
			Expect(out.Turn.Descriptor).NotTo(BeNil())
			Expect(out.Armed).To(BeTrue())
			Expect(armer.count()).To(Equal(1))
		})

		It("arms a real controller without activating it", func() {
			reply = simulatableReply
			ctrl := viz.NewController(&viz.RecordingSink{})
			orch = chat.New(remote.Func(func(context.Context, string) (string, error) { return reply, nil }), chat.WithArmer(ctrl))

			out, err := orch.Ask(ctx, "AM?")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Armed).To(BeTrue())
			Expect(ctrl.State()).To(Equal(viz.Uninitialized))
			Expect(ctrl.SynthParams().ModIndex).To(Equal(0.8))
		})

		DescribeTable("does not arm",
			func(raw string) {
				reply = raw
				out, err := orch.Ask(ctx, "q")
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Armed).To(BeFalse())
				Expect(out.Turn.Descriptor).To(BeNil())
				Expect(out.Turn.Raw).To(Equal("text"))
				Expect(armer.count()).To(BeZero())
			},
			Entry("not simulatable", `text |||SIM_JSON|||{"isSimulatable": false}`),
			Entry("malformed descriptor", `text |||SIM_JSON|||{"isSimulatable": tru`),
			Entry("invalid schema", `text |||SIM_JSON|||{"isSimulatable": true, "parameters": [{"name": "modIndex", "min": 1, "max": 0, "step": 0.1}]}`),
			Entry("no sentinel", "  text  "),
		)

		It("keeps the answer when arming fails", func() {
			reply = simulatableReply
			armer.err = errors.New("busy")
			out, err := orch.Ask(ctx, "AM?")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Armed).To(BeFalse())
			Expect(out.Turn.Pending).To(BeFalse())
			Expect(out.Turn.Descriptor).NotTo(BeNil())
		})
	})

	Context("when the remote call fails", func() {
		It("replaces the pending turn with the apology", func() {
			fail = &remote.StatusError{Code: 500, Message: "Failed to get response from Gemini"}
			out, err := orch.Ask(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())

			var se *remote.StatusError
			Expect(errors.As(out.Err, &se)).To(BeTrue())
			Expect(out.Turn.Rendered).To(Equal(chat.ApologyText))
			Expect(out.Turn.Failed).To(BeTrue())

			turns := orch.Transcript()
			Expect(turns).To(HaveLen(2))
			Expect(turns[1].Pending).To(BeFalse())
			Expect(turns[1].Raw).To(Equal(chat.ApologyText))
			Expect(armer.count()).To(BeZero())
		})
	})

	Context("with overlapping questions", func() {
		It("resolves each pending turn with its own reply", func() {
			first, err := orch.Begin("first")
			Expect(err).NotTo(HaveOccurred())
			second, err := orch.Begin("second")
			Expect(err).NotTo(HaveOccurred())
			Expect(orch.Pending()).To(Equal(2))

			_, ok := orch.Finish(second, "second answer", nil)
			Expect(ok).To(BeTrue())
			Expect(orch.Pending()).To(Equal(1))

			_, ok = orch.Finish(first, "", errors.New("timeout"))
			Expect(ok).To(BeTrue())

			turns := orch.Transcript()
			Expect(turns).To(HaveLen(4))
			Expect(turns[0].Raw).To(Equal("first"))
			Expect(turns[1].Raw).To(Equal(chat.ApologyText))
			Expect(turns[2].Raw).To(Equal("second"))
			Expect(turns[3].Raw).To(Equal("second answer"))
		})

		It("ignores a second completion for the same turn", func() {
			t, err := orch.Begin("q")
			Expect(err).NotTo(HaveOccurred())

			_, ok := orch.Finish(t, "answer", nil)
			Expect(ok).To(BeTrue())
			_, ok = orch.Finish(t, "", errors.New("late failure"))
			Expect(ok).To(BeFalse())

			got, found := orch.Turn(t.PendingID)
			Expect(found).To(BeTrue())
			Expect(got.Raw).To(Equal("answer"))
		})

		It("ignores a ticket it never issued", func() {
			_, ok := orch.Finish(chat.Ticket{PendingID: "nope"}, "answer", nil)
			Expect(ok).To(BeFalse())
			Expect(orch.Transcript()).To(BeEmpty())
		})

		It("leaves nothing pending under concurrent asks", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := orch.Ask(ctx, fmt.Sprintf("q%d", i))
					Expect(err).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()

			Expect(orch.Transcript()).To(HaveLen(32))
			Expect(orch.Pending()).To(Equal(0))
			Expect(calls.Load()).To(Equal(int32(16)))
		})
	})

	Context("with a custom codec", func() {
		It("splits on the last sentinel", func() {
			reply = `use |||SIM_JSON||| as a marker |||SIM_JSON|||{"isSimulatable": false}`
			orch = chat.New(remote.Func(func(context.Context, string) (string, error) { return reply, nil }),
				chat.WithCodec(protocol.Codec{Language: "English", Mode: protocol.SplitLast}))

			out, err := orch.Ask(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Turn.Raw).To(Equal("use |||SIM_JSON||| as a marker"))
		})
	})
})
