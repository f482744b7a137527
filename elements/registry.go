package elements

import (
	"time"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/flow"
	"github.com/akitasoftware/flowcore/runtime"
)

// RegistryConfig parameterizes the flow-classification elements this
// package registers; the CLI fills its fields from the --threads,
// --flow-timeout and --table-capacity flags (plain cobra flags; viper
// binds only --debug).
type RegistryConfig struct {
	NumThreads int

	// FlowTimeout is the idle timeout passed to the classification
	// table's lazy eviction.
	FlowTimeout time.Duration

	// TableCapacity bounds the classification table's entry count.
	TableCapacity int

	// KeyFunc extracts a flow.Key from a packet; defaults to
	// IPv4TCPKey when nil.
	KeyFunc FlowKeyFunc
}

// NewRegistry builds the class-name -> constructor table the graph
// builder resolves node declarations against. The flow-classification
// elements share one FCB pool and
// one classification table across every node that names them, built
// once here and captured by each factory closure rather than threaded
// through per-node configure args.
//
// RoundRobinSwitch's output arity is fixed at construction but resized
// by its own Configure from the graph's arg_string; TCPFlowClassifier's
// thread is likewise overridden via SetThread. PipelinerElement's
// producer count cannot be resized after construction, so it defaults
// to cfg.NumThreads, the natural "one producer per scheduler thread"
// arrangement.
func NewRegistry(cfg RegistryConfig) *runtime.Registry {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = IPv4TCPKey
	}

	pool := flow.NewPool(flow.DefaultPoolSize, false)
	newTable := func() flow.Table {
		return flow.NewLazyTable(cfg.FlowTimeout, cfg.FlowTimeout, cfg.TableCapacity)
	}
	classifier := flow.NewClassifier(cfg.NumThreads, pool, newTable, cfg.FlowTimeout)

	reg := runtime.NewRegistry()
	reg.Register("Discard", NewDiscard)
	reg.Register("Counter", NewCounter)
	reg.Register("PcapSource", NewPcapSource)
	reg.Register("KafkaSource", NewKafkaSource)
	reg.Register("RoundRobinSwitch", func() element.Element {
		return NewRoundRobinSwitch(1, keyFunc)
	})
	reg.Register("TCPFlowClassifier", func() element.Element {
		return NewTCPFlowClassifier(classifier, keyFunc, 0)
	})
	reg.Register("Pipeliner", func() element.Element {
		return NewPipelinerElement(cfg.NumThreads)
	})
	return reg
}
