package models

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Document is the stored form of every catalog entity: an id, the
// collection it belongs to and a free-form field map.
type Document struct {
	ID         string                 `json:"id" validate:"required,max=100" example:"1"`
	Collection string                 `json:"collection" validate:"required,min=1,max=50" example:"products"`
	Fields     map[string]interface{} `json:"fields" validate:"required" swaggertype:"object"`
	CreatedAt  time.Time              `json:"created_at" example:"2024-01-15T00:00:00Z"`
	UpdatedAt  time.Time              `json:"updated_at" example:"2024-01-15T00:00:00Z"`
	Version    int                    `json:"version" example:"1"`
}

func NewDocument(collection string, fields map[string]interface{}) *Document {
	now := time.Now().UTC()
	if fields == nil {
		fields = make(map[string]interface{})
	}
	id := cast.ToString(fields["id"])
	if id == "" {
		id = uuid.NewString()
	}
	fields["id"] = id
	return &Document{
		ID:         id,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
}

func (d *Document) Update(fields map[string]interface{}) {
	fields["id"] = d.ID
	d.Fields = fields
	d.UpdatedAt = time.Now().UTC()
	d.Version++
}

func (d *Document) Clone() *Document {
	cp := *d
	cp.Fields = make(map[string]interface{}, len(d.Fields))
	for k, v := range d.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

// Decode copies the document fields into out, a pointer to one of the typed
// models. Numbers and dates are coerced loosely so fields read back from
// JSON or YAML decode the same way.
func (d *Document) Decode(out interface{}) error {
	return DecodeFields(d.Fields, out)
}

func DecodeFields(fields map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       timeHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

// EncodeFields turns a typed model into the field map stored in a Document.
func EncodeFields(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

var timeType = reflect.TypeOf(time.Time{})

func timeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	if s, ok := data.(string); ok && s == "" {
		return time.Time{}, nil
	}
	return cast.ToTimeE(data)
}
