// Package report holds the nested metric result and its ordered JSON form.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// PartitionAll is the key of the partition covering the whole working set.
const PartitionAll = "all"

// PartitionKey returns the report key of a boss partition.
func PartitionKey(achieveID int) string {
	return strconv.Itoa(achieveID)
}

// Entry is a pair of index aligned arrays sorted descending by value.
type Entry struct {
	Item  []any     `json:"item"`
	Value []float64 `json:"value"`
}

// NewEntry returns an empty entry whose arrays marshal as [].
func NewEntry() Entry {
	return Entry{Item: []any{}, Value: []float64{}}
}

// Append adds one item.
func (e *Entry) Append(item any, value float64) {
	e.Item = append(e.Item, item)
	e.Value = append(e.Value, value)
}

// Len returns the number of items.
func (e Entry) Len() int {
	return len(e.Item)
}

// Total returns the sum of all values.
func (e Entry) Total() float64 {
	var s float64
	for _, v := range e.Value {
		s += v
	}
	return s
}

// SortDesc orders items by descending value. Equal values keep their
// current relative order.
func (e *Entry) SortDesc() {
	sort.Stable(byValueDesc{e})
}

type byValueDesc struct{ e *Entry }

func (s byValueDesc) Len() int           { return len(s.e.Item) }
func (s byValueDesc) Less(i, j int) bool { return s.e.Value[i] > s.e.Value[j] }
func (s byValueDesc) Swap(i, j int) {
	s.e.Item[i], s.e.Item[j] = s.e.Item[j], s.e.Item[i]
	s.e.Value[i], s.e.Value[j] = s.e.Value[j], s.e.Value[i]
}

// Report maps metric name to partition key to entry, preserving the order
// metrics and partitions were declared in.
type Report struct {
	metrics    []string
	partitions []string
	entries    map[string]map[string]Entry
}

// New creates an empty report for a metric catalogue and partition keys.
func New(metrics, partitions []string) *Report {
	r := &Report{
		metrics:    append([]string(nil), metrics...),
		partitions: append([]string(nil), partitions...),
		entries:    make(map[string]map[string]Entry, len(metrics)),
	}
	for _, m := range metrics {
		r.entries[m] = make(map[string]Entry)
	}
	return r
}

// Set stores the entry of metric for partition.
func (r *Report) Set(metric, partition string, e Entry) error {
	byPartition, ok := r.entries[metric]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if !r.hasPartition(partition) {
		return fmt.Errorf("%w: %s", ErrUnknownPartition, partition)
	}
	if e.Item == nil {
		e.Item = []any{}
	}
	if e.Value == nil {
		e.Value = []float64{}
	}
	byPartition[partition] = e
	return nil
}

// Get returns the entry of metric for partition.
func (r *Report) Get(metric, partition string) (Entry, bool) {
	e, ok := r.entries[metric][partition]
	return e, ok
}

// Metrics returns metric names in catalogue order.
func (r *Report) Metrics() []string {
	return append([]string(nil), r.metrics...)
}

// Partitions returns partition keys in declaration order.
func (r *Report) Partitions() []string {
	return append([]string(nil), r.partitions...)
}

func (r *Report) hasPartition(p string) bool {
	for _, k := range r.partitions {
		if k == p {
			return true
		}
	}
	return false
}

// MarshalJSON writes metrics and partitions in declaration order. Partitions
// without an entry are omitted.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range r.metrics {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(&buf, m); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		first := true
		for _, p := range r.partitions {
			e, ok := r.entries[m][p]
			if !ok {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeValue(&buf, p); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeValue(&buf, e); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
