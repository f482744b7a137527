package elements

import (
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/pkg/errors"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/errh"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
	"github.com/akitasoftware/flowcore/printer"
	"github.com/akitasoftware/flowcore/runtime"
	"github.com/akitasoftware/flowcore/sched"
)

// pollTimeoutMS mirrors the teacher's readMessages poll interval
// (kafka/kafka.go: "Confluent deprecated a channel-based API in favor of
// time-based polling").
const pollTimeoutMS = 1000

// KafkaSource is a push-mode source element that treats each Kafka
// message's value as one packet, with no mac/network/transport layers of
// its own (its layer offsets stay unset, since a raw message body carries
// none to parse).
//
// Grounded on the teacher's KafkaMessageUploader.readMessages
// (postmanlabs-observability-cli/kafka/kafka.go): a poll loop calling
// consumer.ReadMessage(1000) and treating kafka.ErrTimedOut as the
// ordinary empty-poll case rather than an error. Here the poll body
// becomes a Task so it participates in the cooperative scheduler instead
// of running on its own goroutine, and a successful read commits
// synchronously rather than from a detached goroutine, since the
// wrapping Task already runs on a single worker thread with no
// concurrent access to the consumer handle.
type KafkaSource struct {
	element.Base

	topic   string
	brokers string
	groupID string

	consumer *kafka.Consumer
	thread   int
	rt       *runtime.Runtime
}

// NewKafkaSource returns a single-output source; Configure supplies
// brokers (args[0]), topic (args[1]), and consumer group id (args[2]).
func NewKafkaSource() element.Element {
	s := &KafkaSource{}
	s.Outputs = make([]port.OutputPort, 1)
	return s
}

func (s *KafkaSource) SetRuntime(rt *runtime.Runtime) {
	s.rt = rt
}

// SetThread satisfies runtime.ThreadAware, picking which scheduler loop
// drains this consumer.
func (s *KafkaSource) SetThread(thread int) {
	s.thread = thread
}

func (s *KafkaSource) Configure(args []string, eh *errh.Handler) element.Status {
	if len(args) < 2 {
		eh.Errorf(s.Name, "KafkaSource requires brokers and topic arguments")
		return element.Failed
	}
	s.brokers = args[0]
	s.topic = args[1]
	s.groupID = "flowcore"
	if len(args) > 2 {
		s.groupID = args[2]
	}
	return element.OK
}

func (s *KafkaSource) Initialize(eh *errh.Handler) element.Status {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": s.brokers,
		"group.id":          s.groupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		eh.Add(errh.Error, s.Name, errors.Wrap(err, "failed to create kafka consumer"))
		return element.Failed
	}
	if err := c.SubscribeTopics([]string{s.topic}, nil); err != nil {
		c.Close()
		eh.Add(errh.Error, s.Name, errors.Wrapf(err, "failed to subscribe to %s", s.topic))
		return element.Failed
	}
	s.consumer = c

	if s.rt == nil {
		eh.Errorf(s.Name, "KafkaSource was never given a runtime")
		return element.Failed
	}
	task := sched.NewTask(s.pollOnce)
	s.rt.Sched.Loop(s.thread).AddTask(task)
	return element.OK
}

func (s *KafkaSource) pollOnce() bool {
	msg, err := s.consumer.ReadMessage(pollTimeoutMS)
	if err != nil {
		if kErr, ok := err.(kafka.Error); !ok || kErr.Code() != kafka.ErrTimedOut {
			printer.Errorf("KafkaSource %s: %v\n", s.Name, err)
		}
		return false
	}

	data := append([]byte(nil), msg.Value...)
	p := packet.New(data, 0, 0, nil)
	s.Outputs[0].Push(p)
	s.consumer.CommitMessage(msg)
	return true
}

func (s *KafkaSource) Cleanup(stage element.CleanupStage) {
	if s.consumer != nil {
		s.consumer.Close()
		s.consumer = nil
	}
}

func (s *KafkaSource) AddHandlers(reg *element.Registry) {
	reg.AddReadHandler(s.Name, "topic", element.FlagCalm, func() (string, error) {
		return s.topic, nil
	})
	reg.AddReadHandler(s.Name, "group_id", element.FlagCalm, func() (string, error) {
		return s.groupID, nil
	})
}
