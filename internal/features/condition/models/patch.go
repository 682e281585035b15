package models

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Patch is a partial condition keyed by JSON field names.
type Patch map[string]interface{}

// Apply shallow-merges patch into c and returns the result; c is not modified.
//
// A "type" key that differs from c.Type resets the payload to the new type's zero
// payload before the remaining keys are applied. Keys that belong neither to the
// common fields nor to the current payload are dropped.
func (c Condition) Apply(patch Patch) (Condition, error) {
	out := c.Clone()

	if raw, ok := patch["type"]; ok {
		t, err := toType(raw)
		if err != nil {
			return c, err
		}
		if t != out.Type {
			out = Condition{
				ID:        out.ID,
				GroupID:   out.GroupID,
				IsEnabled: out.IsEnabled,
				Type:      t,
			}
			out.Payload, _ = NewPayload(t)
		}
	}

	common := reflect.ValueOf(&out).Elem()
	var payload reflect.Value
	if out.Payload != nil {
		payload = reflect.ValueOf(out.Payload).Elem()
	}

	for key, value := range patch {
		if key == "type" {
			continue
		}
		field, ok := fieldByJSONName(common, key)
		if !ok && payload.IsValid() {
			field, ok = fieldByJSONName(payload, key)
		}
		if !ok {
			continue
		}
		if err := assign(field, value); err != nil {
			return c, fmt.Errorf("field %s: %w", key, err)
		}
	}

	return out, nil
}

func toType(v interface{}) (Type, error) {
	switch t := v.(type) {
	case Type:
		return t, nil
	case string:
		return Type(t), nil
	}
	return "", fmt.Errorf("type must be a string, got %T", v)
}

// fieldByJSONName finds the settable struct field tagged with name. Fields tagged "-"
// are never matched.
func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if strings.Split(tag, ",")[0] == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func assign(field reflect.Value, value interface{}) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	target := field.Type()

	if target.Kind() == reflect.Ptr {
		elem := reflect.New(target.Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if v.Type().AssignableTo(target) {
		field.Set(v)
		return nil
	}

	if n, ok := value.(json.Number); ok && isNumeric(target.Kind()) {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			v = reflect.ValueOf(i)
		} else {
			f, err := strconv.ParseFloat(n.String(), 64)
			if err != nil {
				return err
			}
			v = reflect.ValueOf(f)
		}
	}
	if isNumeric(v.Kind()) && isNumeric(target.Kind()) {
		if err := checkFits(v, target); err != nil {
			return err
		}
		field.Set(v.Convert(target))
		return nil
	}
	if v.Kind() == reflect.String && target.Kind() == reflect.String {
		field.SetString(v.String())
		return nil
	}

	// Slices, maps and mismatched shapes go through the JSON codec.
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fresh := reflect.New(target)
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	field.Set(fresh.Elem())
	return nil
}

// checkFits rejects numbers that would change on conversion to target: fractions into
// integer fields and values out of the target's range.
func checkFits(v reflect.Value, target reflect.Type) error {
	dst := reflect.New(target).Elem()
	var overflow bool
	switch {
	case isFloat(target.Kind()):
		overflow = isFloat(v.Kind()) && dst.OverflowFloat(v.Float())
	case isFloat(v.Kind()):
		f := v.Float()
		if f != math.Trunc(f) {
			return fmt.Errorf("%v is not a whole number", f)
		}
		if isInt(target.Kind()) {
			overflow = f < math.MinInt64 || f >= math.MaxInt64 || dst.OverflowInt(int64(f))
		} else {
			overflow = f < 0 || f >= math.MaxUint64 || dst.OverflowUint(uint64(f))
		}
	case isInt(v.Kind()):
		n := v.Int()
		if isInt(target.Kind()) {
			overflow = dst.OverflowInt(n)
		} else {
			overflow = n < 0 || dst.OverflowUint(uint64(n))
		}
	default:
		n := v.Uint()
		if isInt(target.Kind()) {
			overflow = n > math.MaxInt64 || dst.OverflowInt(int64(n))
		} else {
			overflow = dst.OverflowUint(n)
		}
	}
	if overflow {
		return fmt.Errorf("%v is out of range", v.Interface())
	}
	return nil
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// cloner deep-copies payloads.
type cloner struct{}

func (cloner) Jetton(p *Jetton) Payload               { c := *p; return &c }
func (cloner) Toncoin(p *Toncoin) Payload             { c := *p; return &c }
func (cloner) NFTCollection(p *NFTCollection) Payload { c := *p; return &c }
func (cloner) Premium(p *Premium) Payload             { return &Premium{} }
func (cloner) Emoji(p *Emoji) Payload                 { c := *p; return &c }
func (cloner) ExternalSource(p *ExternalSource) Payload {
	c := *p
	return &c
}

func (cloner) StickerCollection(p *StickerCollection) Payload {
	return &StickerCollection{
		CollectionID: clonePtr(p.CollectionID),
		CharacterID:  clonePtr(p.CharacterID),
		Category:     clonePtr(p.Category),
		Expected:     p.Expected,
	}
}

func (cloner) GiftCollection(p *GiftCollection) Payload {
	return &GiftCollection{
		Collection: clonePtr(p.Collection),
		Model:      clonePtr(p.Model),
		Backdrop:   clonePtr(p.Backdrop),
		Pattern:    clonePtr(p.Pattern),
		Expected:   p.Expected,
	}
}

func (cloner) Whitelist(p *Whitelist) Payload {
	c := *p
	if p.Users != nil {
		c.Users = append([]int64{}, p.Users...)
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
