package telemetry

import (
	"fmt"
	"maps"
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

type SpanAttributes struct {
	Campaign    optional[string] // fuzz.campaign.name
	FindingsDir optional[string] // fuzz.campaign.findings_dir

	extraAttributes map[string]any
}

func EmptySpanAttributes() *SpanAttributes {
	return &SpanAttributes{
		extraAttributes: make(map[string]any),
	}
}

// Merge copies values from other that are not set yet.
func (o *SpanAttributes) Merge(other *SpanAttributes) {
	if other == nil {
		return
	}
	mergeOptional(&o.Campaign, &other.Campaign)
	mergeOptional(&o.FindingsDir, &other.FindingsDir)

	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	for k, v := range other.extraAttributes {
		if _, exists := o.extraAttributes[k]; !exists {
			o.extraAttributes[k] = v
		}
	}
}

func (o *SpanAttributes) WithCampaign(name, findingsDir string) *SpanAttributes {
	o.Campaign.Set(name)
	o.FindingsDir.Set(findingsDir)
	return o
}

func (o *SpanAttributes) WithExtraAttribute(key string, val any) *SpanAttributes {
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	o.extraAttributes[key] = val
	return o
}

func (o *SpanAttributes) WithExtraAttributes(attrs map[string]any) *SpanAttributes {
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	maps.Copy(o.extraAttributes, attrs)
	return o
}

// Attributes flattens the set into otel key/values; extra attributes are sorted by key.
func (o SpanAttributes) Attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2+len(o.extraAttributes))
	if o.Campaign.set {
		attrs = append(attrs, attribute.String("fuzz.campaign.name", o.Campaign.val))
	}
	if o.FindingsDir.set {
		attrs = append(attrs, attribute.String("fuzz.campaign.findings_dir", o.FindingsDir.val))
	}

	keys := make([]string, 0, len(o.extraAttributes))
	for k := range o.extraAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch val := o.extraAttributes[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case uint64:
			attrs = append(attrs, attribute.Int64(k, int64(val)))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

type EventAttributes []attribute.KeyValue

func NewEventAttributes(attributes map[string]string) EventAttributes {
	attrs := make(EventAttributes, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

type optional[T any] struct {
	val T
	set bool
}

func (o *optional[T]) Set(val T) { o.val = val; o.set = true }

func mergeOptional[T any](target, source *optional[T]) {
	if !target.set && source.set {
		target.val = source.val
		target.set = true
	}
}
