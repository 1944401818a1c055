package rowmap

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"dynquery/internal/coerce"
	"dynquery/internal/uuidutil"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// assign stores a driver value into target, a pointer to a DTO field.
// Decoding is weakly typed so text-protocol drivers that return every value
// as []byte still populate numeric, boolean and time fields.
func assign(target any, value any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			uuidHook,
			bytesToStringHook,
			stringToTimeHook,
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(value)
}

func uuidHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != uuidType || from == uuidType {
		return data, nil
	}
	return uuidutil.FromDriverValue(data)
}

func bytesToStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from != bytesType {
		return data, nil
	}
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Slice, reflect.Array, reflect.Interface:
		return data, nil
	}
	return string(data.([]byte)), nil
}

func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	return coerce.ParseTime(data.(string))
}
