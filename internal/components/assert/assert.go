// Package assert panics on programmer errors, never on bad input data.
package assert

import (
	"fmt"
	"reflect"
)

func NotNil(value any) {
	if value == nil {
		panic("assert: value is nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			panic(fmt.Sprintf("assert: %s is nil", v.Type()))
		}
	}
}
