package occlib

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	pb "github.com/AliceO2Group/occ/protos"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// testTask records hook invocations and returns scripted error codes.
type testTask struct {
	TaskBase

	mu             sync.Mutex
	calls          []string
	lastProperties PropertyMap

	configureRet int
	startRet     int

	iterateRunningRet atomic.Int32
	iterateCheckRet   atomic.Int32
	iterateCheckCalls atomic.Int32
}

func newTestTask() *testTask {
	return &testTask{TaskBase: NewTaskBase("testTask")}
}

func (t *testTask) record(hook string) {
	t.mu.Lock()
	t.calls = append(t.calls, hook)
	t.mu.Unlock()
}

func (t *testTask) hookCalls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func (t *testTask) ExecuteConfigure(properties PropertyMap) int {
	t.record("CONFIGURE")
	t.mu.Lock()
	t.lastProperties = properties
	t.mu.Unlock()
	return t.configureRet
}
func (t *testTask) ExecuteReset() int   { t.record("RESET"); return 0 }
func (t *testTask) ExecuteRecover() int { t.record("RECOVER"); return 0 }
func (t *testTask) ExecuteStart() int   { t.record("START"); return t.startRet }
func (t *testTask) ExecuteStop() int    { t.record("STOP"); return 0 }
func (t *testTask) ExecutePause() int   { t.record("PAUSE"); return 0 }
func (t *testTask) ExecuteResume() int  { t.record("RESUME"); return 0 }
func (t *testTask) ExecuteExit() int    { t.record("EXIT"); return 0 }

func (t *testTask) IterateRunning() int {
	return int(t.iterateRunningRet.Load())
}
func (t *testTask) IterateCheck() int {
	t.iterateCheckCalls.Add(1)
	return int(t.iterateCheckRet.Load())
}

type fakeStateStream struct {
	grpc.ServerStream
	ctx  context.Context
	mu   sync.Mutex
	sent []*pb.StateStreamReply
}

func (f *fakeStateStream) Context() context.Context { return f.ctx }
func (f *fakeStateStream) Send(rep *pb.StateStreamReply) error {
	f.mu.Lock()
	f.sent = append(f.sent, rep)
	f.mu.Unlock()
	return nil
}
func (f *fakeStateStream) states() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, rep := range f.sent {
		out = append(out, rep.GetState())
	}
	return out
}

type fakeEventStream struct {
	grpc.ServerStream
	ctx  context.Context
	mu   sync.Mutex
	sent []*pb.EventStreamReply
}

func (f *fakeEventStream) Context() context.Context { return f.ctx }
func (f *fakeEventStream) Send(rep *pb.EventStreamReply) error {
	f.mu.Lock()
	f.sent = append(f.sent, rep)
	f.mu.Unlock()
	return nil
}
func (f *fakeEventStream) events() []pb.DeviceEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pb.DeviceEventType, 0, len(f.sent))
	for _, rep := range f.sent {
		out = append(out, rep.GetEvent().GetType())
	}
	return out
}

func transitionRequest(src string, evt string, args ...*pb.ConfigEntry) *pb.TransitionRequest {
	return &pb.TransitionRequest{
		SrcState:        src,
		TransitionEvent: evt,
		Arguments:       args,
	}
}

var _ = Describe("Control service", func() {
	var (
		task   *testTask
		server *Server
	)

	BeforeEach(func() {
		task = newTestTask()
		server = NewServer(task)
	})

	AfterEach(func() {
		server.Destroy()
	})

	Describe("GetState", func() {
		It("should report STANDBY and the process pid after startup", func() {
			rep, err := server.GetState(context.Background(), &pb.GetStateRequest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.GetState()).To(Equal("STANDBY"))
			Expect(rep.GetPid()).To(Equal(int32(os.Getpid())))
		})
	})

	Describe("Transition", func() {
		It("should drive the full lifecycle with EXECUTOR-triggered replies", func() {
			type step struct {
				src, evt, dst string
			}
			for _, st := range []step{
				{"STANDBY", "CONFIGURE", "CONFIGURED"},
				{"CONFIGURED", "START", "RUNNING"},
				{"RUNNING", "PAUSE", "PAUSED"},
				{"PAUSED", "RESUME", "RUNNING"},
				{"RUNNING", "STOP", "CONFIGURED"},
				{"CONFIGURED", "RESET", "STANDBY"},
				{"STANDBY", "EXIT", "DONE"},
			} {
				rep, err := server.Transition(context.Background(), transitionRequest(st.src, st.evt))
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetState()).To(Equal(st.dst))
				Expect(rep.GetTransitionEvent()).To(Equal(st.evt))
				Expect(rep.GetOk()).To(BeTrue())
				Expect(rep.GetTrigger()).To(Equal(pb.StateChangeTrigger_EXECUTOR))
			}
			Expect(task.hookCalls()).To(Equal([]string{
				"CONFIGURE", "START", "PAUSE", "RESUME", "STOP", "RESET", "EXIT",
			}))
			Expect(server.CheckMachineDone()).To(BeTrue())
		})

		It("should hand the decoded properties to the configure hook", func() {
			_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE",
				&pb.ConfigEntry{Key: "chans.data-out.0.rateLogging", Value: "60"},
				&pb.ConfigEntry{Key: "period", Value: "5ms"},
			))
			Expect(err).NotTo(HaveOccurred())

			task.mu.Lock()
			properties := task.lastProperties
			task.mu.Unlock()
			v, ok := properties.Get("chans.data-out.0.rateLogging")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(60))
			Expect(properties.GetString("period", "")).To(Equal("5ms"))
		})

		It("should attach typed-subtree payloads as native trees in the configure hook", func() {
			_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE",
				&pb.ConfigEntry{Key: "__ptree__:json:cfg", Value: `{"enabled": "true", "tasks": {"rawqc": "on"}}`},
			))
			Expect(err).NotTo(HaveOccurred())

			task.mu.Lock()
			properties := task.lastProperties
			task.mu.Unlock()
			v, ok := properties.Get("cfg")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(map[string]interface{}{
				"enabled": "true",
				"tasks":   map[string]interface{}{"rawqc": "on"},
			}))
		})

		It("should reconfigure identically after a RESET", func() {
			args := []*pb.ConfigEntry{
				{Key: "chans.data-out.0.rateLogging", Value: "60"},
				{Key: "period", Value: "5ms"},
			}

			rep, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE", args...))
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.GetState()).To(Equal("CONFIGURED"))
			task.mu.Lock()
			firstProperties := task.lastProperties
			task.mu.Unlock()

			rep, err = server.Transition(context.Background(), transitionRequest("CONFIGURED", "RESET"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.GetState()).To(Equal("STANDBY"))

			rep, err = server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE", args...))
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.GetState()).To(Equal("CONFIGURED"))
			Expect(rep.GetOk()).To(BeTrue())
			Expect(rep.GetTrigger()).To(Equal(pb.StateChangeTrigger_EXECUTOR))

			task.mu.Lock()
			secondProperties := task.lastProperties
			task.mu.Unlock()
			Expect(secondProperties).To(Equal(firstProperties))
			Expect(task.hookCalls()).To(Equal([]string{"CONFIGURE", "RESET", "CONFIGURE"}))
		})

		It("should refresh the task run number on every transition", func() {
			_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE"))
			Expect(err).NotTo(HaveOccurred())

			_, err = server.Transition(context.Background(), transitionRequest("CONFIGURED", "START",
				&pb.ConfigEntry{Key: "runNumber", Value: "777"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Identity().RunNumber()).To(Equal(RunNumber(777)))

			_, err = server.Transition(context.Background(), transitionRequest("RUNNING", "STOP"))
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Identity().RunNumber()).To(Equal(RunNumberUndefined))
		})

		When("the request is null", func() {
			It("should fail with InvalidArgument", func() {
				_, err := server.Transition(context.Background(), nil)
				Expect(status.Code(err)).To(Equal(codes.InvalidArgument))
			})
		})

		When("the declared source state does not match", func() {
			It("should fail with InvalidArgument and leave the task untouched", func() {
				_, err := server.Transition(context.Background(), transitionRequest("RUNNING", "STOP"))
				Expect(status.Code(err)).To(Equal(codes.InvalidArgument))
				Expect(status.Convert(err).Message()).To(ContainSubstring("state mismatch"))
				Expect(task.hookCalls()).To(BeEmpty())

				rep, err := server.GetState(context.Background(), &pb.GetStateRequest{})
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetState()).To(Equal("STANDBY"))
			})
		})

		When("the transition name is unknown", func() {
			It("should fail with InvalidArgument", func() {
				_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "WARP"))
				Expect(status.Code(err)).To(Equal(codes.InvalidArgument))
				Expect(status.Convert(err).Message()).To(ContainSubstring("not a valid transition name"))
			})
		})

		When("the event is known but not accepted in the current state", func() {
			It("should leave the state alone and flag the reply as not ok", func() {
				rep, err := server.Transition(context.Background(), transitionRequest("STANDBY", "START"))
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetOk()).To(BeFalse())
				Expect(rep.GetState()).To(Equal("STANDBY"))
				Expect(rep.GetTrigger()).To(Equal(pb.StateChangeTrigger_DEVICE_INTENTIONAL))
				Expect(task.hookCalls()).To(BeEmpty())
			})
		})

		When("a transition hook fails", func() {
			It("should move to ERROR and recover through RECOVER", func() {
				task.configureRet = 1
				rep, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE"))
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetState()).To(Equal("ERROR"))
				Expect(rep.GetOk()).To(BeFalse())
				Expect(rep.GetTrigger()).To(Equal(pb.StateChangeTrigger_DEVICE_ERROR))

				rep, err = server.Transition(context.Background(), transitionRequest("ERROR", "RECOVER"))
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetState()).To(Equal("STANDBY"))
				Expect(rep.GetOk()).To(BeTrue())
				Expect(rep.GetTrigger()).To(Equal(pb.StateChangeTrigger_EXECUTOR))
			})
		})

		When("the machine already reached DONE", func() {
			It("should fail with FailedPrecondition", func() {
				_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "EXIT"))
				Expect(err).NotTo(HaveOccurred())

				_, err = server.Transition(context.Background(), transitionRequest("DONE", "CONFIGURE"))
				Expect(status.Code(err)).To(Equal(codes.FailedPrecondition))
			})
		})
	})

	Describe("the checker loop", func() {
		When("the running iteration declares end of stream", func() {
			It("should push END_OF_STREAM exactly once and keep RUNNING", func() {
				id, queue := server.eventSubs.Subscribe("test")
				defer server.eventSubs.Unsubscribe(id)

				_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE"))
				Expect(err).NotTo(HaveOccurred())
				task.iterateRunningRet.Store(1)
				_, err = server.Transition(context.Background(), transitionRequest("CONFIGURED", "START"))
				Expect(err).NotTo(HaveOccurred())

				var event *pb.DeviceEvent
				Eventually(queue).Should(Receive(&event))
				Expect(event.GetType()).To(Equal(pb.DeviceEventType_END_OF_STREAM))
				Consistently(queue, 50*time.Millisecond).ShouldNot(Receive())

				rep, err := server.GetState(context.Background(), &pb.GetStateRequest{})
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetState()).To(Equal("RUNNING"))

				reply, err := server.Transition(context.Background(), transitionRequest("RUNNING", "STOP"))
				Expect(err).NotTo(HaveOccurred())
				Expect(reply.GetOk()).To(BeTrue())
			})
		})

		When("the running iteration fails", func() {
			It("should move the machine to ERROR", func() {
				_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "CONFIGURE"))
				Expect(err).NotTo(HaveOccurred())
				task.iterateRunningRet.Store(2)
				_, err = server.Transition(context.Background(), transitionRequest("CONFIGURED", "START"))
				Expect(err).NotTo(HaveOccurred())

				Eventually(func() string {
					rep, _ := server.GetState(context.Background(), &pb.GetStateRequest{})
					return rep.GetState()
				}).Should(Equal("ERROR"))
			})
		})

		When("the health check fails", func() {
			It("should push TASK_INTERNAL_ERROR, move to ERROR and stop checking", func() {
				id, queue := server.eventSubs.Subscribe("test")
				defer server.eventSubs.Unsubscribe(id)

				task.iterateCheckRet.Store(3)

				var event *pb.DeviceEvent
				Eventually(queue).Should(Receive(&event))
				Expect(event.GetType()).To(Equal(pb.DeviceEventType_TASK_INTERNAL_ERROR))

				rep, err := server.GetState(context.Background(), &pb.GetStateRequest{})
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GetState()).To(Equal("ERROR"))

				// The health check is suspended in ERROR, so the call
				// count settles.
				settled := task.iterateCheckCalls.Load()
				Consistently(task.iterateCheckCalls.Load, 50*time.Millisecond).Should(Equal(settled))
			})
		})
	})

	Describe("StateStream", func() {
		It("should deliver every state change and close after DONE", func() {
			stream := &fakeStateStream{ctx: context.Background()}
			done := make(chan error, 1)
			go func() { done <- server.StateStream(&pb.StateStreamRequest{}, stream) }()

			// The stream handler must be subscribed before transitions.
			Eventually(server.stateSubs.Count).Should(Equal(1))

			for _, st := range [][2]string{
				{"STANDBY", "CONFIGURE"},
				{"CONFIGURED", "START"},
				{"RUNNING", "STOP"},
				{"CONFIGURED", "EXIT"},
			} {
				_, err := server.Transition(context.Background(), transitionRequest(st[0], st[1]))
				Expect(err).NotTo(HaveOccurred())
			}

			Eventually(done).Should(Receive(BeNil()))
			Expect(stream.states()).To(Equal([]string{"CONFIGURED", "RUNNING", "CONFIGURED", "DONE"}))
			for _, rep := range stream.sent {
				Expect(rep.GetType()).To(Equal(pb.StateType_STATE_STABLE))
			}
			Eventually(server.stateSubs.Count).Should(Equal(0))
		})

		It("should end when the caller goes away", func() {
			ctx, cancel := context.WithCancel(context.Background())
			stream := &fakeStateStream{ctx: ctx}
			done := make(chan error, 1)
			go func() { done <- server.StateStream(&pb.StateStreamRequest{}, stream) }()

			Eventually(server.stateSubs.Count).Should(Equal(1))
			cancel()
			Eventually(done).Should(Receive(BeNil()))
			Eventually(server.stateSubs.Count).Should(Equal(0))
		})
	})

	Describe("EventStream", func() {
		It("should close with a null event once the machine reaches DONE", func() {
			stream := &fakeEventStream{ctx: context.Background()}
			done := make(chan error, 1)
			go func() { done <- server.EventStream(&pb.EventStreamRequest{}, stream) }()

			Eventually(server.eventSubs.Count).Should(Equal(1))

			_, err := server.Transition(context.Background(), transitionRequest("STANDBY", "EXIT"))
			Expect(err).NotTo(HaveOccurred())

			Eventually(done).Should(Receive(BeNil()))
			Expect(stream.events()).To(Equal([]pb.DeviceEventType{pb.DeviceEventType_NULL_DEVICE_EVENT}))
			Eventually(server.eventSubs.Count).Should(Equal(0))
		})
	})
})
