/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package ddb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/strandsoft/docstore/datastore"
	"github.com/strandsoft/docstore/errors"
)

// Item attribute layout for the single-table design. The full key structure
// is stored alongside the encoded properties so entities round-trip without
// parsing key strings.
type itemRec struct {
	PK     string    `dynamodbav:"pk"`
	SK     string    `dynamodbav:"sk"`
	GSI1PK string    `dynamodbav:"gsi1pk"`
	GSI1SK string    `dynamodbav:"gsi1sk"`
	Rev    string    `dynamodbav:"rev"`
	Entity entityRec `dynamodbav:"entity"`
}

type entityRec struct {
	Key   keyRec              `dynamodbav:"k"`
	Names []string            `dynamodbav:"o"`
	Props map[string]valueRec `dynamodbav:"p,omitempty"`
}

type keyRec struct {
	Dataset   string    `dynamodbav:"d"`
	Namespace string    `dynamodbav:"ns,omitempty"`
	Path      []pathRec `dynamodbav:"p"`
}

type pathRec struct {
	Kind string `dynamodbav:"k"`
	ID   int64  `dynamodbav:"i,omitempty"`
	Name string `dynamodbav:"n,omitempty"`
}

type valueRec struct {
	Type    string              `dynamodbav:"t"`
	Bool    *bool               `dynamodbav:"b,omitempty"`
	Int     *int64              `dynamodbav:"i,omitempty"`
	Float   *float64            `dynamodbav:"f,omitempty"`
	Str     *string             `dynamodbav:"s,omitempty"`
	Bytes   []byte              `dynamodbav:"y,omitempty"`
	Time    *string             `dynamodbav:"ts,omitempty"`
	Key     *keyRec             `dynamodbav:"k,omitempty"`
	Entity  *entityRec          `dynamodbav:"e,omitempty"`
	Raw     []byte              `dynamodbav:"r,omitempty"`
	List    []valueRec          `dynamodbav:"l,omitempty"`
	ListLen *int                `dynamodbav:"ln,omitempty"`
	Indexed *bool               `dynamodbav:"x,omitempty"`
	Meaning *int                `dynamodbav:"m,omitempty"`
}

func kindPartition(dataset, namespace, kind string) string {
	return dataset + "|" + namespace + "|" + kind
}

func encodeItem(e *datastore.Entity, rev string) (map[string]types.AttributeValue, error) {
	key := e.Key()
	rec := itemRec{
		PK:     key.String(),
		SK:     key.String(),
		GSI1PK: kindPartition(key.Dataset(), key.Namespace(), key.Kind()),
		GSI1SK: key.String(),
		Rev:    rev,
	}
	ent, err := encodeEntity(&e.PartialEntity)
	if err != nil {
		return nil, err
	}
	rec.Entity = *ent
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return item, nil
}

func decodeItem(item map[string]types.AttributeValue) (*datastore.Entity, string, error) {
	var rec itemRec
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal item: %w", err)
	}
	e, err := decodeEntity(&rec.Entity)
	if err != nil {
		return nil, "", err
	}
	return e, rec.Rev, nil
}

func encodeEntity(pe *datastore.PartialEntity) (*entityRec, error) {
	rec := &entityRec{Names: pe.Names()}
	if pe.HasCompleteKey() {
		rec.Key = encodeKey(pe.CompleteKey())
	} else {
		rec.Key = encodePartialKey(pe.Key(), nil)
	}
	if len(rec.Names) > 0 {
		rec.Props = make(map[string]valueRec, len(rec.Names))
	}
	for _, name := range rec.Names {
		v, err := pe.GetValue(name)
		if err != nil {
			return nil, err
		}
		vr, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		rec.Props[name] = vr
	}
	return rec, nil
}

func decodeEntity(rec *entityRec) (*datastore.Entity, error) {
	key, err := decodeKey(&rec.Key)
	if err != nil {
		return nil, err
	}
	b := datastore.NewEntityBuilder(key)
	for _, name := range rec.Names {
		vr, ok := rec.Props[name]
		if !ok {
			return nil, errors.Newf(errors.Internal, "stored property %q has no value", name)
		}
		v, err := decodeValue(vr)
		if err != nil {
			return nil, err
		}
		b.Set(name, v)
	}
	return b.Build()
}

func encodeKey(k *datastore.Key) keyRec {
	return encodePartialKey(&k.PartialKey, &pathRec{Kind: k.Kind(), ID: k.ID(), Name: k.Name()})
}

func encodePartialKey(pk *datastore.PartialKey, terminal *pathRec) keyRec {
	rec := keyRec{Dataset: pk.Dataset(), Namespace: pk.Namespace()}
	for _, el := range pk.Ancestors() {
		rec.Path = append(rec.Path, pathRec{Kind: el.Kind(), ID: el.ID(), Name: el.Name()})
	}
	if terminal != nil {
		rec.Path = append(rec.Path, *terminal)
	} else {
		rec.Path = append(rec.Path, pathRec{Kind: pk.Kind()})
	}
	return rec
}

func decodeKey(rec *keyRec) (*datastore.Key, error) {
	pk, last, err := keyBuilderFor(rec)
	if err != nil {
		return nil, err
	}
	switch {
	case last.Name != "":
		return pk.Name(last.Name).Build()
	default:
		return pk.ID(last.ID).Build()
	}
}

func decodePartialKey(rec *keyRec) (*datastore.PartialKey, error) {
	pk, _, err := keyBuilderFor(rec)
	if err != nil {
		return nil, err
	}
	return pk.BuildPartial()
}

func keyBuilderFor(rec *keyRec) (*datastore.KeyBuilder, pathRec, error) {
	if len(rec.Path) == 0 {
		return nil, pathRec{}, errors.New(errors.Internal, "stored key has an empty path")
	}
	last := rec.Path[len(rec.Path)-1]
	b := datastore.NewKeyBuilder(rec.Dataset, last.Kind).Namespace(rec.Namespace)
	var ancestors []datastore.PathElement
	for _, el := range rec.Path[:len(rec.Path)-1] {
		if el.Name != "" {
			ancestors = append(ancestors, datastore.PathElementName(el.Kind, el.Name))
		} else {
			ancestors = append(ancestors, datastore.PathElementID(el.Kind, el.ID))
		}
	}
	if len(ancestors) > 0 {
		b = b.Ancestors(ancestors...)
	}
	return b, last, nil
}

func encodeValue(v datastore.Value) (valueRec, error) {
	rec := valueRec{Type: v.Type().String()}
	rec.Indexed = v.Indexed()
	if m, ok := v.Meaning(); ok {
		rec.Meaning = &m
	}
	switch v.Type() {
	case datastore.TypeNull:
	case datastore.TypeBool:
		b := v.Get().(bool)
		rec.Bool = &b
	case datastore.TypeInt:
		i := v.Get().(int64)
		rec.Int = &i
	case datastore.TypeFloat:
		f := v.Get().(float64)
		rec.Float = &f
	case datastore.TypeString:
		s := v.Get().(string)
		rec.Str = &s
	case datastore.TypeBytes:
		rec.Bytes = v.Get().([]byte)
	case datastore.TypeTime:
		ts := v.Get().(time.Time).Format(time.RFC3339Nano)
		rec.Time = &ts
	case datastore.TypeKey:
		k := encodeKey(v.Get().(*datastore.Key))
		rec.Key = &k
	case datastore.TypeEntity:
		e, err := encodeEntity(v.Get().(*datastore.PartialEntity))
		if err != nil {
			return valueRec{}, err
		}
		rec.Entity = e
	case datastore.TypeRaw:
		rec.Raw = []byte(v.Get().(json.RawMessage))
	case datastore.TypeList:
		elems := v.Get().([]datastore.Value)
		n := len(elems)
		rec.ListLen = &n
		for _, el := range elems {
			er, err := encodeValue(el)
			if err != nil {
				return valueRec{}, err
			}
			rec.List = append(rec.List, er)
		}
	default:
		return valueRec{}, errors.Newf(errors.Internal, "unknown value type %v", v.Type())
	}
	return rec, nil
}

func decodeValue(rec valueRec) (datastore.Value, error) {
	var v datastore.Value
	switch rec.Type {
	case datastore.TypeNull.String():
		v = datastore.NewNull()
	case datastore.TypeBool.String():
		v = datastore.NewBool(*rec.Bool)
	case datastore.TypeInt.String():
		v = datastore.NewInt(*rec.Int)
	case datastore.TypeFloat.String():
		v = datastore.NewFloat(*rec.Float)
	case datastore.TypeString.String():
		v = datastore.NewString(*rec.Str)
	case datastore.TypeBytes.String():
		v = datastore.NewBytes(rec.Bytes)
	case datastore.TypeTime.String():
		t, err := time.Parse(time.RFC3339Nano, *rec.Time)
		if err != nil {
			return datastore.Value{}, fmt.Errorf("failed to parse stored timestamp: %w", err)
		}
		v = datastore.NewTime(t)
	case datastore.TypeKey.String():
		k, err := decodeKey(rec.Key)
		if err != nil {
			return datastore.Value{}, err
		}
		v = datastore.NewKeyValue(k)
	case datastore.TypeEntity.String():
		pe, err := decodeNestedEntity(rec.Entity)
		if err != nil {
			return datastore.Value{}, err
		}
		v = datastore.NewEntityValue(pe)
	case datastore.TypeRaw.String():
		v = datastore.NewRaw(json.RawMessage(rec.Raw))
	case datastore.TypeList.String():
		elems := make([]datastore.Value, 0, len(rec.List))
		for _, er := range rec.List {
			el, err := decodeValue(er)
			if err != nil {
				return datastore.Value{}, err
			}
			elems = append(elems, el)
		}
		v = datastore.NewList(elems...)
	default:
		return datastore.Value{}, errors.Newf(errors.Internal, "unknown stored value type %q", rec.Type)
	}

	b := v.ToBuilder()
	if rec.Indexed != nil {
		b = b.Indexed(*rec.Indexed)
	} else {
		b = b.ClearIndexed()
	}
	if rec.Meaning != nil {
		b = b.Meaning(*rec.Meaning)
	}
	return b.Build()
}

// decodeNestedEntity rebuilds a nested entity value, which unlike a stored
// row may carry an incomplete key. Key completeness must survive the round
// trip, so a terminal id or name selects the complete-key builder.
func decodeNestedEntity(rec *entityRec) (datastore.EntityLike, error) {
	if len(rec.Key.Path) == 0 {
		return nil, errors.New(errors.Internal, "stored key has an empty path")
	}
	var b *datastore.EntityBuilder
	last := rec.Key.Path[len(rec.Key.Path)-1]
	if last.ID != 0 || last.Name != "" {
		key, err := decodeKey(&rec.Key)
		if err != nil {
			return nil, err
		}
		b = datastore.NewEntityBuilder(key)
	} else {
		pk, err := decodePartialKey(&rec.Key)
		if err != nil {
			return nil, err
		}
		b = datastore.NewPartialEntityBuilder(pk)
	}
	for _, name := range rec.Names {
		vr, ok := rec.Props[name]
		if !ok {
			return nil, errors.Newf(errors.Internal, "stored property %q has no value", name)
		}
		v, err := decodeValue(vr)
		if err != nil {
			return nil, err
		}
		b.Set(name, v)
	}
	return b.BuildPartial()
}
