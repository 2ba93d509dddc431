package packets

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
	"packetlog/pkg/packet"
)

const (
	MetricDefinitionType = "MetricDefinition"
	MetricType           = "Metric"
	MetricSampleType     = "MetricSample"
)

// How samples of a metric are interpreted
type SampleKind int32

const (
	SampleGauge     SampleKind = 1 // value at the sample time
	SampleCounter   SampleKind = 2 // monotonically increasing total
	SampleIncrement SampleKind = 3 // delta since the previous sample
)

func (kind SampleKind) String() string {
	switch kind {
	case SampleGauge:
		return "gauge"
	case SampleCounter:
		return "counter"
	case SampleIncrement:
		return "increment"
	}
	return fmt.Sprintf("kind(%d)", int32(kind))
}

var metricDefinitionDefinition = packet.NewDefinition(MetricDefinitionType, 1, true).
	AddField("ID", codec.FieldGUID).
	AddField("Category", codec.FieldString).
	AddField("CounterName", codec.FieldString).
	AddField("Unit", codec.FieldString).
	AddField("Description", codec.FieldString).
	AddField("SampleKind", codec.FieldInt32).
	AddSubPacket(packet.HeaderDefinition())

// Describes a family of metrics (category + counter name)
type MetricDefinition struct {
	packet.Header
	DefinitionID uuid.UUID
	Category     string
	CounterName  string
	Unit         string
	Description  string
	Kind         SampleKind
}

// Definition IDs are derived from category and counter name so every process agrees on them
func NewMetricDefinition(category string, counterName string, unit string, kind SampleKind) (def *MetricDefinition) {
	def = &MetricDefinition{
		DefinitionID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(category+"\x00"+counterName)),
		Category:     category,
		CounterName:  counterName,
		Unit:         unit,
		Kind:         kind,
	}
	return
}

func (def *MetricDefinition) Definition() *packet.Definition {
	return metricDefinitionDefinition
}

func (def *MetricDefinition) ID() uuid.UUID {
	return def.DefinitionID
}

func (def *MetricDefinition) WriteFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	def.WriteHeader(bag)
	bag.SetGUID("ID", def.DefinitionID)
	bag.SetString("Category", def.Category)
	bag.SetString("CounterName", def.CounterName)
	bag.SetString("Unit", def.Unit)
	bag.SetString("Description", def.Description)
	bag.SetInt32("SampleKind", int32(def.Kind))
	return
}

func (def *MetricDefinition) ReadFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	def.ReadHeader(bag)
	def.DefinitionID = bag.GetGUID("ID")
	def.Category = bag.GetString("Category")
	def.CounterName = bag.GetString("CounterName")
	def.Unit = bag.GetString("Unit")
	def.Description = bag.GetString("Description")
	def.Kind = SampleKind(bag.GetInt32("SampleKind"))
	return
}

var metricDefinition = packet.NewDefinition(MetricType, 1, true).
	AddField("ID", codec.FieldGUID).
	AddField("DefinitionID", codec.FieldGUID).
	AddField("InstanceName", codec.FieldString).
	AddSubPacket(packet.HeaderDefinition())

// One instance of a metric definition (for example one per queue)
type Metric struct {
	packet.Header
	MetricID     uuid.UUID
	InstanceName string
	Def          *MetricDefinition

	definitionID uuid.UUID
}

func NewMetric(def *MetricDefinition, instanceName string) (metric *Metric) {
	metric = &Metric{
		MetricID:     uuid.NewSHA1(def.DefinitionID, []byte(instanceName)),
		InstanceName: instanceName,
		Def:          def,
	}
	return
}

func (metric *Metric) Definition() *packet.Definition {
	return metricDefinition
}

func (metric *Metric) ID() uuid.UUID {
	return metric.MetricID
}

func (metric *Metric) RequiredPackets() []packet.Packet {
	if metric.Def == nil {
		return nil
	}
	return []packet.Packet{metric.Def}
}

func (metric *Metric) WriteFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	if metric.Def == nil {
		err = fmt.Errorf("metric %s has no definition", metric.InstanceName)
		return
	}
	metric.WriteHeader(bag)
	bag.SetGUID("ID", metric.MetricID)
	bag.SetGUID("DefinitionID", metric.Def.DefinitionID)
	bag.SetString("InstanceName", metric.InstanceName)
	return
}

func (metric *Metric) ReadFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	metric.ReadHeader(bag)
	metric.MetricID = bag.GetGUID("ID")
	metric.definitionID = bag.GetGUID("DefinitionID")
	metric.InstanceName = bag.GetString("InstanceName")
	return
}

func (metric *Metric) ResolveReferences(lookup func(uuid.UUID) (packet.Packet, bool)) (err error) {
	pkt, ok := lookup(metric.definitionID)
	if !ok {
		err = fmt.Errorf("definition %s of metric %s not in stream", metric.definitionID, metric.MetricID)
		return
	}
	def, ok := pkt.(*MetricDefinition)
	if !ok {
		err = fmt.Errorf("packet %s referenced as metric definition is %T", metric.definitionID, pkt)
		return
	}
	metric.Def = def
	return
}

var metricSampleDefinition = packet.NewDefinition(MetricSampleType, 1, false).
	AddField("MetricID", codec.FieldGUID).
	AddField("Value", codec.FieldDouble).
	AddSubPacket(packet.HeaderDefinition())

// A single observation of a metric, timestamped by its header
type MetricSample struct {
	packet.Header
	Metric *Metric
	Value  float64

	metricID uuid.UUID
}

func NewMetricSample(metric *Metric, value float64) (sample *MetricSample) {
	sample = &MetricSample{
		Metric: metric,
		Value:  value,
	}
	return
}

func (sample *MetricSample) Definition() *packet.Definition {
	return metricSampleDefinition
}

func (sample *MetricSample) RequiredPackets() []packet.Packet {
	if sample.Metric == nil {
		return nil
	}
	return []packet.Packet{sample.Metric}
}

func (sample *MetricSample) WriteFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	if sample.Metric == nil {
		err = fmt.Errorf("metric sample has no metric")
		return
	}
	if math.IsNaN(sample.Value) {
		err = fmt.Errorf("metric sample for %s is NaN", sample.Metric.InstanceName)
		return
	}
	sample.WriteHeader(bag)
	bag.SetGUID("MetricID", sample.Metric.MetricID)
	bag.SetDouble("Value", sample.Value)
	return
}

func (sample *MetricSample) ReadFields(_ *packet.Definition, bag *packet.SerializedPacket) (err error) {
	sample.ReadHeader(bag)
	sample.metricID = bag.GetGUID("MetricID")
	sample.Value = bag.GetDouble("Value")
	return
}

func (sample *MetricSample) ResolveReferences(lookup func(uuid.UUID) (packet.Packet, bool)) (err error) {
	pkt, ok := lookup(sample.metricID)
	if !ok {
		err = fmt.Errorf("metric %s of sample not in stream", sample.metricID)
		return
	}
	metric, ok := pkt.(*Metric)
	if !ok {
		err = fmt.Errorf("packet %s referenced as metric is %T", sample.metricID, pkt)
		return
	}
	sample.Metric = metric
	return
}
